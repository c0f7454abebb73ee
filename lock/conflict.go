package lock

// ConflictType classifies why a lock attempt did not succeed outright.
// A nil *Conflict return from Lock/LockNoWait/WaitForLock always means
// the lock was granted.
type ConflictType int

const (
	// Blocked is the transient outcome of LockNoWait when the request
	// could not be granted immediately; it is never returned by the
	// blocking Lock call, and it is not a terminal conflict — the
	// caller is expected to call WaitForLock to resolve it.
	Blocked ConflictType = iota + 1
	// Timeout means the wait deadline (min(now+lockTimeout,
	// txn.creationTime+txn.timeout)) elapsed before the request was
	// granted.
	Timeout
	// Denied is part of the conflict taxonomy shared with non-locking
	// access coordinators, but this lock-based implementation never
	// produces it: it does not deny requests that would not themselves
	// result in deadlock. It is kept so callers that switch on
	// ConflictType compile against the full taxonomy.
	Denied
	// Interrupted means the caller's context was cancelled while
	// waiting.
	Interrupted
	// Deadlock means this Locker was chosen as the victim of a
	// waits-for cycle. Once a Locker observes Deadlock, all further
	// Lock/LockNoWait/WaitForLock calls for it fail with
	// ErrAlreadyDeadlocked.
	Deadlock
)

func (t ConflictType) String() string {
	switch t {
	case Blocked:
		return "BLOCKED"
	case Timeout:
		return "TIMEOUT"
	case Denied:
		return "DENIED"
	case Interrupted:
		return "INTERRUPTED"
	case Deadlock:
		return "DEADLOCK"
	default:
		return "UNKNOWN"
	}
}

// Conflict describes a non-grant outcome of a lock attempt, with an
// optional pointer to the foreign Locker at the front of the blocking
// set, for diagnostic reporting.
type Conflict struct {
	Type        ConflictType
	Conflicting *Locker
}
