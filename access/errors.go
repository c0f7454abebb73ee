package access

import (
	"errors"
	"fmt"

	"github.com/paranblues/reddwarf/lock"
)

// Programming errors, per spec.md section 7: surfaced immediately, with
// no effect on transaction state beyond what already existed.
var (
	ErrIllegalArgument = errors.New("access: illegal argument")
	ErrIllegalState    = errors.New("access: illegal state")
)

// TransactionTimeoutError reports that a lock wait's deadline elapsed
// before the request was granted.
type TransactionTimeoutError struct {
	TxnID       string
	Key         lock.Key
	Conflicting string // conflicting transaction id, if known
}

func (e *TransactionTimeoutError) Error() string {
	if e.Conflicting != "" {
		return fmt.Sprintf("access: transaction %s timed out waiting for %s (held by %s)", e.TxnID, e.Key, e.Conflicting)
	}
	return fmt.Sprintf("access: transaction %s timed out waiting for %s", e.TxnID, e.Key)
}

// TransactionConflictError reports a Denied or Deadlock conflict.
// spec.md section 4.4 maps both to the same exception kind.
type TransactionConflictError struct {
	TxnID       string
	Key         lock.Key
	Deadlock    bool
	Conflicting string
}

func (e *TransactionConflictError) Error() string {
	kind := "denied"
	if e.Deadlock {
		kind = "deadlock"
	}
	if e.Conflicting != "" {
		return fmt.Sprintf("access: transaction %s %s on %s (conflicting txn %s)", e.TxnID, kind, e.Key, e.Conflicting)
	}
	return fmt.Sprintf("access: transaction %s %s on %s", e.TxnID, kind, e.Key)
}

// IsDeadlock reports whether this conflict originated from a deadlock
// cycle rather than an outright denial.
func (e *TransactionConflictError) IsDeadlock() bool { return e.Deadlock }

// TransactionInterruptedError reports that the caller's context was
// cancelled while a lock request was pending.
type TransactionInterruptedError struct {
	TxnID string
	Key   lock.Key
	Err   error
}

func (e *TransactionInterruptedError) Error() string {
	return fmt.Sprintf("access: transaction %s interrupted waiting for %s: %v", e.TxnID, e.Key, e.Err)
}

func (e *TransactionInterruptedError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a TransactionTimeoutError.
func IsTimeout(err error) bool {
	var e *TransactionTimeoutError
	return errors.As(err, &e)
}

// IsConflict reports whether err is a TransactionConflictError.
func IsConflict(err error) bool {
	var e *TransactionConflictError
	return errors.As(err, &e)
}

// IsInterrupted reports whether err is a TransactionInterruptedError.
func IsInterrupted(err error) bool {
	var e *TransactionInterruptedError
	return errors.As(err, &e)
}

// conflictToError maps a *lock.Conflict to the typed exception
// spec.md section 4.4 names, or nil if c is nil (grant). A Blocked
// conflict, which the blocking Lock never returns, is not a terminal
// outcome and maps to an ErrIllegalState error.
func conflictToError(txnID string, key lock.Key, c *lock.Conflict, ctxErr error) error {
	if c == nil {
		return nil
	}
	conflicting := ""
	if c.Conflicting != nil {
		conflicting = c.Conflicting.ID()
	}
	switch c.Type {
	case lock.Timeout:
		return &TransactionTimeoutError{TxnID: txnID, Key: key, Conflicting: conflicting}
	case lock.Denied:
		return &TransactionConflictError{TxnID: txnID, Key: key, Deadlock: false, Conflicting: conflicting}
	case lock.Deadlock:
		return &TransactionConflictError{TxnID: txnID, Key: key, Deadlock: true, Conflicting: conflicting}
	case lock.Interrupted:
		return &TransactionInterruptedError{TxnID: txnID, Key: key, Err: ctxErr}
	default:
		return fmt.Errorf("%w: unexpected conflict type %s", ErrIllegalState, c.Type)
	}
}
