package lock

// lockState is the per-key state: the granted set (at most one Write,
// or any number of Reads) and the FIFO waiter queue (upgrades ahead of
// non-upgrades). It is only ever mutated while the owning shard's mutex
// is held.
type lockState struct {
	granted []*Request
	waiters []*Request
}

// conflictsWith reports whether a and b cannot both be granted at the
// same time: a Write conflicts with anything else; two Reads never
// conflict.
func conflictsWith(a, b *Request) bool {
	if a.Locker == b.Locker {
		return false
	}
	return a.ForWrite || b.ForWrite
}

// canGrantNow reports whether req can be granted immediately against
// the current granted set, per spec.md section 4.1: a Write is
// grantable iff granted is empty or contains only this same locker
// (self-upgrade); a Read is grantable iff no Write is granted.
func canGrantNow(granted []*Request, req *Request) bool {
	if req.ForWrite {
		for _, g := range granted {
			if g.Locker != req.Locker {
				return false
			}
		}
		return true
	}
	for _, g := range granted {
		if g.ForWrite {
			return false
		}
	}
	return true
}

// insertWaiter inserts req into the waiter queue: upgrade requests are
// placed after any existing upgrade waiters but before all non-upgrade
// waiters; non-upgrade requests go to the back, preserving FIFO.
func (ls *lockState) insertWaiter(req *Request) {
	if !req.Upgrade {
		ls.waiters = append(ls.waiters, req)
		return
	}
	i := 0
	for i < len(ls.waiters) && ls.waiters[i].Upgrade {
		i++
	}
	ls.waiters = append(ls.waiters, nil)
	copy(ls.waiters[i+1:], ls.waiters[i:])
	ls.waiters[i] = req
}

// runGrantRule re-evaluates the head of the waiter queue after any
// state change, granting consecutive waiters that can be satisfied and
// stopping at the first one that cannot (spec.md section 4.1). It
// returns the requests newly granted, in grant order, so the caller can
// wake each one's Locker after releasing the shard mutex.
func (ls *lockState) runGrantRule() []*Request {
	var newlyGranted []*Request
	for len(ls.waiters) > 0 {
		w := ls.waiters[0]
		if w.ForWrite {
			if !canGrantNow(ls.granted, w) {
				break
			}
			if w.Upgrade {
				ls.removeGrantedLocker(w.Locker)
			}
			ls.granted = append(ls.granted, w)
			ls.waiters = ls.waiters[1:]
			newlyGranted = append(newlyGranted, w)
			continue
		}
		if !canGrantNow(ls.granted, w) {
			break
		}
		ls.granted = append(ls.granted, w)
		ls.waiters = ls.waiters[1:]
		newlyGranted = append(newlyGranted, w)
	}
	return newlyGranted
}

// removeGrantedLocker drops l's existing granted Read so an upgrade can
// replace it with the Write in the same granted slot.
func (ls *lockState) removeGrantedLocker(l *Locker) {
	out := ls.granted[:0]
	for _, g := range ls.granted {
		if g.Locker != l {
			out = append(out, g)
		}
	}
	ls.granted = out
}

// removeLocker drops every granted or waiting Request belonging to l at
// this key. Release is defined to be infallible: a missing grant is a
// no-op.
func (ls *lockState) removeLocker(l *Locker) {
	out := ls.granted[:0]
	for _, g := range ls.granted {
		if g.Locker != l {
			out = append(out, g)
		}
	}
	ls.granted = out

	outW := ls.waiters[:0]
	for _, w := range ls.waiters {
		if w.Locker != l {
			outW = append(outW, w)
		}
	}
	ls.waiters = outW
}

// blockers returns the granted requests that conflict with req, i.e.
// the edges the deadlock detector should follow out of req's Locker.
func (ls *lockState) blockers(req *Request) []*Locker {
	var out []*Locker
	for _, g := range ls.granted {
		if conflictsWith(g, req) {
			out = append(out, g.Locker)
		}
	}
	return out
}

// empty reports whether this key has no granted holders and no
// waiters, meaning the shard can garbage-collect it.
func (ls *lockState) empty() bool {
	return len(ls.granted) == 0 && len(ls.waiters) == 0
}
