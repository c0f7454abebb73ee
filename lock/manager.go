package lock

import (
	"context"
	"time"
)

// DefaultNumKeyMaps is the default shard count for the key map,
// matching the original implementation's NUM_KEY_MAPS_DEFAULT.
const DefaultNumKeyMaps = 8

// Manager is the public lock manager: it orchestrates the sharded key
// map and per-Locker waiters, and is the only component that blocks a
// caller's goroutine. A Manager is safe for concurrent use by many
// goroutines, each acting on behalf of a different Locker.
type Manager struct {
	lockTimeout time.Duration
	shards      []*shard
}

// NewManager creates a Manager with numShards partitions of the key
// map. lockTimeout is the maximum wait for a single lock acquisition,
// before being capped further by each Locker's own deadline.
func NewManager(lockTimeout time.Duration, numShards int) *Manager {
	if numShards < 1 {
		numShards = DefaultNumKeyMaps
	}
	return &Manager{lockTimeout: lockTimeout, shards: newShards(numShards)}
}

func (m *Manager) shardFor(key Key) *shard {
	return m.shards[shardIndex(key, len(m.shards))]
}

// Lock attempts to acquire key at the given mode, blocking until
// granted, timed out, cancelled via ctx, or declared a deadlock victim.
// A nil *Conflict return means the lock was acquired.
func (m *Manager) Lock(ctx context.Context, locker *Locker, key Key, forWrite bool) (*Conflict, error) {
	c, err := m.attempt(locker, key, forWrite)
	if err != nil || c == nil || c.Type != Blocked {
		return c, err
	}
	req := locker.currentWait()
	if req == nil {
		// attempt's own deadlock check may already have chosen locker
		// as the victim, which clears the wait and records Deadlock.
		return locker.Conflict(), nil
	}
	return m.wait(ctx, locker, req, m.deadlineFor(locker))
}

// LockNoWait attempts to acquire key without blocking. If the request
// cannot be granted immediately, it is still enqueued and checked for
// deadlock, but LockNoWait returns a Blocked conflict rather than
// waiting; the caller must later call WaitForLock to resolve it.
func (m *Manager) LockNoWait(locker *Locker, key Key, forWrite bool) (*Conflict, error) {
	return m.attempt(locker, key, forWrite)
}

// WaitForLock waits for an outstanding request installed by a prior
// LockNoWait. It fails with ErrAlreadyDeadlocked once the Locker has
// been chosen as a deadlock victim. Otherwise, if the Locker has no
// outstanding wait, it returns the Locker's recorded conflict (nil if
// it has none) immediately.
func (m *Manager) WaitForLock(ctx context.Context, locker *Locker) (*Conflict, error) {
	if locker.isDeadlocked() {
		return nil, ErrAlreadyDeadlocked
	}
	req := locker.currentWait()
	if req == nil {
		return locker.Conflict(), nil
	}
	deadline := m.deadlineFor(locker)
	return m.wait(ctx, locker, req, deadline)
}

// ReleaseLock removes any grant or outstanding wait that locker holds
// on key, then re-runs the grant rule and wakes any newly granted
// waiters. Release is infallible: a missing grant is a no-op.
func (m *Manager) ReleaseLock(locker *Locker, key Key) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	ls := sh.get(key)
	if ls == nil {
		sh.mu.Unlock()
		return
	}
	ls.removeLocker(locker)
	granted := ls.runGrantRule()
	sh.gcIfEmpty(key, ls)
	sh.mu.Unlock()

	for _, g := range granted {
		g.Locker.markGranted()
	}
}

// deadlineFor computes min(now+lockTimeout, locker.deadline), per
// spec.md section 4.2.
func (m *Manager) deadlineFor(locker *Locker) time.Time {
	byTimeout := time.Now().Add(m.lockTimeout)
	if locker.deadline.Before(byTimeout) {
		return locker.deadline
	}
	return byTimeout
}

// attempt is the shared core of Lock and LockNoWait: it classifies the
// request, tries an immediate grant, and falls back to enqueue +
// deadlock-check. attempt itself never blocks; a non-nil Blocked
// Conflict means the caller must follow up with WaitForLock.
func (m *Manager) attempt(locker *Locker, key Key, forWrite bool) (*Conflict, error) {
	if locker.isDeadlocked() {
		return nil, ErrAlreadyDeadlocked
	}
	if locker.isWaiting() {
		return nil, ErrWaitInProgress
	}
	if key.ObjectID == nil {
		return nil, ErrNilObjectID
	}

	sh := m.shardFor(key)
	sh.mu.Lock()
	ls := sh.getOrCreate(key)

	mode, held := heldMode(ls.granted, locker)
	if held && (mode == Write || !forWrite) {
		sh.mu.Unlock()
		return nil, nil
	}
	upgrade := held && mode == Read && forWrite

	req := &Request{Locker: locker, Key: key, ForWrite: forWrite, Upgrade: upgrade}
	locker.recordRequest(req)

	if canGrantNow(ls.granted, req) {
		if upgrade {
			ls.removeGrantedLocker(locker)
		}
		ls.granted = append(ls.granted, req)
		sh.mu.Unlock()
		return nil, nil
	}

	ls.insertWaiter(req)
	locker.beginWait(req)
	sh.mu.Unlock()

	victim := m.detectDeadlock(locker)
	if victim != nil {
		var conflicting *Locker
		if vreq := victim.currentWait(); vreq != nil {
			conflicting = m.conflictingLockerFor(vreq)
		}
		victim.markConflict(&Conflict{Type: Deadlock, Conflicting: conflicting})
	}

	return &Conflict{Type: Blocked}, nil
}

// wait blocks until req resolves: granted, the deadline elapses, ctx is
// cancelled, or a deadlock victim notification lands on locker.
//
// locker.mu is held only long enough to evaluate the outcome; it is
// released before any shard mutex is acquired (conflictingLockerFor),
// preserving the shard-mutex-before-locker-mutex ordering that attempt
// and ReleaseLock rely on.
func (m *Manager) wait(ctx context.Context, locker *Locker, req *Request, deadline time.Time) (*Conflict, error) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		locker.mu.Lock()
		if locker.waitingFor == req {
			locker.timedOut = true
			locker.cond.Broadcast()
		}
		locker.mu.Unlock()
	})
	defer timer.Stop()

	var ctxDone <-chan struct{}
	if ctx != nil {
		ctxDone = ctx.Done()
	}
	var stopWatch chan struct{}
	if ctxDone != nil {
		stopWatch = make(chan struct{})
		go func() {
			select {
			case <-ctxDone:
				locker.mu.Lock()
				if locker.waitingFor == req {
					locker.cancelled = true
					locker.cond.Broadcast()
				}
				locker.mu.Unlock()
			case <-stopWatch:
			}
		}()
		defer close(stopWatch)
	}

	locker.mu.Lock()
	for locker.waitingFor == req && locker.conflict == nil && !locker.timedOut && !locker.cancelled {
		locker.cond.Wait()
	}

	conflict := locker.conflict
	stillWaiting := locker.waitingFor == req
	timedOut := locker.timedOut
	locker.timedOut = false
	locker.cancelled = false

	var needConflicting bool
	if conflict == nil && stillWaiting {
		if timedOut {
			conflict = &Conflict{Type: Timeout}
			needConflicting = true
		} else {
			conflict = &Conflict{Type: Interrupted}
		}
		locker.conflict = conflict
		locker.waitingFor = nil
	}
	locker.mu.Unlock()

	if needConflicting {
		conflict.Conflicting = m.conflictingLockerFor(req)
	}
	return conflict, nil
}

// conflictingLockerFor looks up a granted holder that blocks req, for
// diagnostic reporting on a Timeout conflict.
func (m *Manager) conflictingLockerFor(req *Request) *Locker {
	sh := m.shardFor(req.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	ls := sh.get(req.Key)
	if ls == nil {
		return nil
	}
	blockers := ls.blockers(req)
	if len(blockers) == 0 {
		return nil
	}
	return blockers[0]
}
