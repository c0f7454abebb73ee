package lock

// detectDeadlock runs a depth-first search of the waits-for graph rooted
// at origin, the locker that has just begun waiting (spec.md section
// 4.3). An edge L -> L' exists when L.waitingFor names a key on which L'
// holds an incompatible grant. If the search revisits origin, every
// locker on the discovered cycle is a deadlock-victim candidate; if not,
// detectDeadlock returns nil and the lockers involved simply continue
// waiting (blocking alone is never itself an error).
//
// Each hop acquires and releases exactly one shard mutex; no shard
// mutex is ever held across a hop, and no Locker mutex is held while a
// shard mutex is acquired, matching the ordering discipline used by
// attempt and wait.
func (m *Manager) detectDeadlock(origin *Locker) *Locker {
	visited := map[*Locker]bool{origin: true}
	cycle := m.searchWaitsFor(origin, origin, visited, []*Locker{origin})
	if cycle == nil {
		return nil
	}
	return pickVictim(cycle)
}

// searchWaitsFor walks one step of the waits-for graph from current,
// extending path. It returns the full cycle (origin ... origin) the
// first time an edge leads back to origin, or nil if this branch is a
// dead end.
func (m *Manager) searchWaitsFor(origin, current *Locker, visited map[*Locker]bool, path []*Locker) []*Locker {
	req := current.currentWait()
	if req == nil {
		// current is not (or no longer) blocked on anything: no
		// outgoing edge, this branch cannot close a cycle.
		return nil
	}

	for _, next := range m.blockersFor(req) {
		if next == origin {
			return append(append([]*Locker(nil), path...), origin)
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		if cycle := m.searchWaitsFor(origin, next, visited, append(path, next)); cycle != nil {
			return cycle
		}
	}
	return nil
}

// blockersFor returns the granted lockers that conflict with req,
// acquiring only req's own shard mutex for the duration of the lookup.
func (m *Manager) blockersFor(req *Request) []*Locker {
	sh := m.shardFor(req.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	ls := sh.get(req.Key)
	if ls == nil {
		return nil
	}
	return ls.blockers(req)
}

// pickVictim chooses the deadlock victim from a closed cycle: the
// locker with the largest age (youngest, most recently requested start
// time), ties broken by the lexicographically greatest transaction id,
// per spec.md section 4.3.
func pickVictim(cycle []*Locker) *Locker {
	victim := cycle[0]
	for _, l := range cycle[1:] {
		if l.Age() > victim.Age() || (l.Age() == victim.Age() && l.ID() > victim.ID()) {
			victim = l
		}
	}
	return victim
}
