package lock

import "errors"

// Programming errors: bad arguments or calls made against a Locker in a
// state the caller should not have reached. These never affect the
// transaction beyond the caller's own mistake — they are distinct from
// the Conflict taxonomy, which always represents a genuine contention
// outcome.
var (
	// ErrAlreadyDeadlocked is returned by Lock, LockNoWait, and
	// WaitForLock once a Locker has observed a Deadlock conflict: per
	// spec.md section 4.2, "once set to Deadlock, all further lock or
	// wait calls by this locker fail immediately with IllegalState."
	ErrAlreadyDeadlocked = errors.New("lock: locker already deadlocked")
	// ErrWaitInProgress is returned by Lock and LockNoWait when the
	// Locker already has an outstanding wait: a transaction's lock
	// operations are single-threaded, so a second concurrent lock call
	// is rejected rather than interleaved. WaitForLock does not check
	// for it; a second concurrent WaitForLock is not rejected.
	ErrWaitInProgress = errors.New("lock: locker already has an outstanding wait")
	// ErrNilObjectID is returned when ObjectID is nil, which cannot be
	// hashed or compared meaningfully.
	ErrNilObjectID = errors.New("lock: objectID must not be nil")
)
