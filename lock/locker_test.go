package lock

import "testing"

func TestHeldMode(t *testing.T) {
	a := NewLocker("A", 1, anyDeadline())
	b := NewLocker("B", 2, anyDeadline())

	if _, held := heldMode(nil, a); held {
		t.Fatal("an empty granted set should report not held")
	}

	granted := []*Request{{Locker: b, ForWrite: false}}
	if _, held := heldMode(granted, a); held {
		t.Fatal("a must not be reported as holding b's grant")
	}

	granted = []*Request{{Locker: a, ForWrite: false}}
	mode, held := heldMode(granted, a)
	if !held || mode != Read {
		t.Fatalf("expected a to hold Read, got mode=%v held=%v", mode, held)
	}

	granted = []*Request{{Locker: a, ForWrite: true}}
	mode, held = heldMode(granted, a)
	if !held || mode != Write {
		t.Fatalf("expected a to hold Write, got mode=%v held=%v", mode, held)
	}
}

func TestMarkConflictSticky(t *testing.T) {
	l := NewLocker("A", 1, anyDeadline())
	l.markConflict(&Conflict{Type: Deadlock})
	if l.Conflict().Type != Deadlock {
		t.Fatal("expected conflict to be set to Deadlock")
	}

	l.markConflict(&Conflict{Type: Timeout})
	if l.Conflict().Type != Deadlock {
		t.Fatal("a later conflict must never overwrite an existing one")
	}
}

func TestIsDeadlocked(t *testing.T) {
	l := NewLocker("A", 1, anyDeadline())
	if l.isDeadlocked() {
		t.Fatal("a fresh locker must not report deadlocked")
	}
	l.markConflict(&Conflict{Type: Timeout})
	if l.isDeadlocked() {
		t.Fatal("a Timeout conflict must not count as deadlocked")
	}
	l.markConflict(&Conflict{Type: Deadlock})
	// markConflict is sticky, so this is a no-op against the Timeout
	// already set above; construct a fresh locker instead.
	l2 := NewLocker("B", 1, anyDeadline())
	l2.markConflict(&Conflict{Type: Deadlock})
	if !l2.isDeadlocked() {
		t.Fatal("a Deadlock conflict must report deadlocked")
	}
}

func TestDescriptionFirstWriterWins(t *testing.T) {
	l := NewLocker("A", 1, anyDeadline())
	key := Key{Source: "s", ObjectID: 1}

	l.SetDescription(key, "first")
	l.SetDescription(key, "second")
	if got := l.Description(key); got != "first" {
		t.Fatalf("expected first description to win, got %q", got)
	}
}

func TestLabelDefaultsToID(t *testing.T) {
	l := NewLocker("T10", 1, anyDeadline())
	if l.String() != "T10" {
		t.Fatalf("expected default label to be the id, got %q", l.String())
	}
	l.SetLabel("custom")
	if l.String() != "custom" {
		t.Fatalf("expected overridden label, got %q", l.String())
	}
}

func TestGoStringRendersState(t *testing.T) {
	l := NewLocker("T10", 5, anyDeadline())
	if got := l.GoString(); got != `lock.Locker{id:"T10", age:5, state:idle}` {
		t.Fatalf("unexpected idle GoString(): %q", got)
	}

	req := &Request{Locker: l, Key: Key{Source: "s", ObjectID: 1}, ForWrite: true}
	l.recordRequest(req)
	l.beginWait(req)
	if got := l.GoString(); got != `lock.Locker{id:"T10", age:5, state:waiting}` {
		t.Fatalf("unexpected waiting GoString(): %q", got)
	}

	l.markConflict(&Conflict{Type: Timeout})
	if got := l.GoString(); got != `lock.Locker{id:"T10", age:5, state:conflict:TIMEOUT}` {
		t.Fatalf("unexpected conflict GoString(): %q", got)
	}
}

func TestRequestsReturnsACopy(t *testing.T) {
	l := NewLocker("A", 1, anyDeadline())
	req := &Request{Locker: l}
	l.recordRequest(req)

	out := l.Requests()
	out[0] = nil
	if l.Requests()[0] != req {
		t.Fatal("Requests must return a defensive copy, not the internal slice")
	}
}
