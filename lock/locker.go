package lock

import (
	"fmt"
	"sync"
	"time"
)

// Locker holds per-transaction lock state: the requests it has made,
// its current terminal conflict (if any), and what it is currently
// waiting for. One Locker exists per active transaction for the
// lifetime of that transaction.
//
// All lock operations for a single transaction must originate from one
// goroutine; Locker is not safe for concurrent use by two goroutines
// racing to lock or wait on behalf of the same transaction. Lock and
// LockNoWait reject a call made while a wait is outstanding with
// ErrWaitInProgress; a second concurrent WaitForLock is not rejected.
type Locker struct {
	// id is the transaction id, used to break victim-selection ties
	// deterministically and as the default debug label.
	id string
	// age is the task's originally requested start time; smaller is
	// older. Used by the deadlock detector to pick a victim.
	age int64
	// deadline is txn.CreationTime() + txn.Timeout(), the hard ceiling
	// on how long any single wait may take regardless of lock.timeout.
	deadline time.Time

	mu         sync.Mutex
	cond       *sync.Cond
	requests   []*Request
	conflict   *Conflict
	waitingFor *Request
	// timedOut and cancelled are transient flags set by the timer/ctx
	// watcher goroutines in Manager.wait to break the Locker's own
	// condition-wait loop; they are cleared again once consumed.
	timedOut  bool
	cancelled bool

	keyDescriptions map[Key]string

	// label is an optional human-readable name for debug output,
	// typically the transaction's String().
	label string
}

// NewLocker creates the per-transaction lock state. age is the task's
// originally requested start time in monotonic milliseconds; deadline
// is the transaction's own hard expiry (creation time + timeout).
func NewLocker(id string, age int64, deadline time.Time) *Locker {
	l := &Locker{id: id, age: age, deadline: deadline, label: id}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// SetLabel overrides the debug label (defaults to id).
func (l *Locker) SetLabel(label string) { l.label = label }

// ID returns the transaction id this Locker was created with.
func (l *Locker) ID() string { return l.id }

// Age returns the task's originally requested start time.
func (l *Locker) Age() int64 { return l.age }

// String renders the locker for debug logging.
func (l *Locker) String() string {
	if l.label != "" {
		return l.label
	}
	return l.id
}

// GoString renders the locker's full internal state for %#v debugging,
// mirroring the detail LockerImpl.toString() prints in the original
// implementation (id, age, and the current wait/conflict state).
func (l *Locker) GoString() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := "idle"
	if l.waitingFor != nil {
		state = "waiting"
	} else if l.conflict != nil {
		state = "conflict:" + l.conflict.Type.String()
	}
	return fmt.Sprintf("lock.Locker{id:%q, age:%d, state:%s}", l.id, l.age, state)
}

// Requests returns every Request this Locker has ever created, granted
// or not, in creation order. Used both to drive bulk release and to
// build a transaction's AccessedObjectsDetail.
func (l *Locker) Requests() []*Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Request, len(l.requests))
	copy(out, l.requests)
	return out
}

func (l *Locker) recordRequest(r *Request) {
	l.mu.Lock()
	l.requests = append(l.requests, r)
	l.mu.Unlock()
}

// Conflict returns the Locker's terminal conflict, or nil if none has
// been observed yet.
func (l *Locker) Conflict() *Conflict {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conflict
}

// SetDescription records a debug description for key. The first
// description set for a given key wins; later calls are no-ops.
func (l *Locker) SetDescription(key Key, description string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keyDescriptions == nil {
		l.keyDescriptions = make(map[Key]string)
	}
	if _, ok := l.keyDescriptions[key]; !ok {
		l.keyDescriptions[key] = description
	}
}

// Description returns the description recorded for key, or "".
func (l *Locker) Description(key Key) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keyDescriptions[key]
}

// heldMode reports the mode at which l already holds key (per the
// caller-supplied granted list) and whether it holds it at all.
func heldMode(granted []*Request, l *Locker) (mode Mode, held bool) {
	for _, g := range granted {
		if g.Locker == l {
			if g.ForWrite {
				return Write, true
			}
			mode = Read
			held = true
		}
	}
	return mode, held
}

// isDeadlocked reports whether this locker has already been chosen as a
// deadlock victim; once true it never reverts.
func (l *Locker) isDeadlocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conflict != nil && l.conflict.Type == Deadlock
}

// beginWait installs req as the outstanding wait. Must be called while
// the Locker does not already have an outstanding wait (checked by
// attempt before it takes the shard mutex).
func (l *Locker) beginWait(req *Request) {
	l.mu.Lock()
	l.waitingFor = req
	l.mu.Unlock()
}

// currentWait returns the Request this Locker is presently blocked on,
// or nil.
func (l *Locker) currentWait() *Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitingFor
}

// isWaiting reports whether this Locker already has an outstanding wait
// in progress (used by Lock and LockNoWait to reject a concurrent call
// from a second goroutine, since a transaction's lock operations are
// defined to be single-threaded).
func (l *Locker) isWaiting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitingFor != nil
}

// markGranted clears waitingFor because the Request was granted.
func (l *Locker) markGranted() {
	l.mu.Lock()
	l.waitingFor = nil
	l.cond.Broadcast()
	l.mu.Unlock()
}

// markConflict sets the Locker's terminal conflict (if one isn't
// already set — Deadlock, once observed, is sticky and must not be
// overwritten by a late timeout/interrupt racing in) and wakes any
// goroutine blocked in wait().
func (l *Locker) markConflict(c *Conflict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conflict != nil {
		return
	}
	l.conflict = c
	l.waitingFor = nil
	l.cond.Broadcast()
}
