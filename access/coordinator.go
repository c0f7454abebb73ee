package access

import (
	"fmt"
	"sync"

	"github.com/paranblues/reddwarf/access/metrics"
	"github.com/paranblues/reddwarf/config"
	"github.com/paranblues/reddwarf/lock"
	"github.com/paranblues/reddwarf/util/logger"
)

// AccessCoordinator is the facade above lock.Manager: it owns the
// Transaction -> Locker registry, translates terminal conflicts into
// typed abort exceptions, and publishes a per-transaction access-detail
// record once a transaction completes.
type AccessCoordinator struct {
	manager *lock.Manager
	log     *logger.Logger

	mu   sync.Mutex
	txns map[string]*txnEntry

	sink ProfileSink
}

type txnEntry struct {
	txn    Transaction
	locker *lock.Locker
}

// NewAccessCoordinator creates a coordinator whose lock.Manager is sized
// and timed per cfg. The default profile sink discards every detail;
// call SetProfileSink to wire in a real one.
func NewAccessCoordinator(cfg config.AccessCoordinatorConfig, log *logger.Logger) *AccessCoordinator {
	return &AccessCoordinator{
		manager: lock.NewManager(cfg.LockTimeout(), cfg.NumShards()),
		log:     log,
		txns:    make(map[string]*txnEntry),
		sink:    NoopProfileSink{},
	}
}

// SetProfileSink overrides the default no-op sink.
func (c *AccessCoordinator) SetProfileSink(sink ProfileSink) {
	c.sink = sink
}

// NotifyNewTransaction creates and registers the Locker for txn.
// tryCount must be >= 1 (ErrIllegalArgument otherwise); registering the
// same transaction id twice is ErrIllegalState.
func (c *AccessCoordinator) NotifyNewTransaction(txn Transaction, requestedStartTime int64, tryCount int) error {
	if tryCount < 1 {
		return fmt.Errorf("%w: tryCount must be >= 1, got %d", ErrIllegalArgument, tryCount)
	}

	deadline := txn.CreationTime().Add(txn.Timeout())
	locker := lock.NewLocker(txn.ID(), requestedStartTime, deadline)

	c.mu.Lock()
	if _, exists := c.txns[txn.ID()]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: transaction %s already registered", ErrIllegalState, txn.ID())
	}
	c.txns[txn.ID()] = &txnEntry{txn: txn, locker: locker}
	metrics.SetActiveLockers(len(c.txns))
	c.mu.Unlock()

	txn.RegisterCompletionListener(&completionListener{coordinator: c, txn: txn})
	c.log.Debugf("transaction %s registered (age=%d)", txn.ID(), requestedStartTime)
	return nil
}

// GetConflictingTransaction always returns nil: this implementation
// keeps no post-completion history (spec.md section 4.4).
func (c *AccessCoordinator) GetConflictingTransaction(txn Transaction) Transaction {
	return nil
}

// lockerFor resolves the Locker registered for txn, or ErrIllegalState
// if txn was never registered or has already completed.
func (c *AccessCoordinator) lockerFor(txn Transaction) (*lock.Locker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.txns[txn.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transaction %s", ErrIllegalState, txn.ID())
	}
	return entry.locker, nil
}

type completionListener struct {
	coordinator *AccessCoordinator
	txn         Transaction
}

func (l *completionListener) AfterCompletion(committed bool) {
	l.coordinator.endTransaction(l.txn, committed)
}

// endTransaction releases every key the transaction's locker touched,
// removes it from the registry, and publishes its access-detail record.
// Release happens unconditionally on both commit and abort, matching
// spec.md section 7's "release is defined to be infallible."
func (c *AccessCoordinator) endTransaction(txn Transaction, committed bool) {
	c.mu.Lock()
	entry, ok := c.txns[txn.ID()]
	if ok {
		delete(c.txns, txn.ID())
	}
	metrics.SetActiveLockers(len(c.txns))
	c.mu.Unlock()
	if !ok {
		return
	}
	locker := entry.locker

	requests := locker.Requests()
	order := make([]lock.Key, 0, len(requests))
	byKey := make(map[lock.Key]*AccessedObjectDetail, len(requests))
	for _, r := range requests {
		d, seen := byKey[r.Key]
		if !seen {
			d = &AccessedObjectDetail{
				Source:      r.Key.Source,
				ObjectID:    r.Key.ObjectID,
				Description: locker.Description(r.Key),
			}
			byKey[r.Key] = d
			order = append(order, r.Key)
		}
		if r.ForWrite {
			d.ForWrite = true
		}
	}
	for _, k := range order {
		c.manager.ReleaseLock(locker, k)
	}

	detail := AccessedObjectsDetail{
		TransactionID: txn.ID(),
		Conflict:      conflictSummaryFor(locker.Conflict()),
	}
	for _, k := range order {
		detail.Objects = append(detail.Objects, *byKey[k])
	}
	c.sink.SetAccessedObjectsDetail(detail)
	if detail.Conflict == ConflictNone {
		c.log.Debugf("transaction %s completed (committed=%v, objects=%d)",
			txn.ID(), committed, len(detail.Objects))
	} else {
		c.log.Warnf("transaction %s completed with conflict=%s (committed=%v, objects=%d)",
			txn.ID(), detail.Conflict, committed, len(detail.Objects))
	}
}

func conflictSummaryFor(c *lock.Conflict) ConflictSummary {
	if c == nil {
		return ConflictNone
	}
	if c.Type == lock.Deadlock {
		return ConflictDeadlock
	}
	return ConflictAccessNotGranted
}
