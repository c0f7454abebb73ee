package lock

import (
	"testing"
	"time"
)

// TestClassicDeadlock matches spec.md section 8 scenario 3: T10 writes
// K1, T20 writes K2, T10 then blocks wanting K2, and T20 closes the
// cycle by wanting K1. The locker with the larger age (T20) is the
// victim.
func TestClassicDeadlock(t *testing.T) {
	m := NewManager(5*time.Second, 1)
	k1 := Key{Source: "s", ObjectID: 1}
	k2 := Key{Source: "s", ObjectID: 2}
	t10 := NewLocker("T10", 10, anyDeadline())
	t20 := NewLocker("T20", 20, anyDeadline())

	c1, err1 := m.Lock(ctxBackground, t10, k1, true)
	mustGranted(t, c1, err1)
	c2, err2 := m.Lock(ctxBackground, t20, k2, true)
	mustGranted(t, c2, err2)

	t10blocked := make(chan *Conflict, 1)
	go func() {
		c, _ := m.Lock(ctxBackground, t10, k2, true)
		t10blocked <- c
	}()
	time.Sleep(30 * time.Millisecond)

	c, err := m.Lock(ctxBackground, t20, k1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.Type != Deadlock {
		t.Fatalf("expected T20 (larger age) to be the deadlock victim, got %v", c)
	}

	select {
	case c := <-t10blocked:
		t.Fatalf("T10 must still be waiting on K2 until T20 actually releases it, got %v", c)
	case <-time.After(50 * time.Millisecond):
	}

	m.ReleaseLock(t20, k2)
	select {
	case c := <-t10blocked:
		if c != nil {
			t.Fatalf("expected T10 granted once K2 is released, got %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("T10 never resolved")
	}
}

// TestDeadlockTieBreak matches scenario 4: same cycle shape, equal ages,
// victim is the lexicographically greater transaction id regardless of
// which side closes the cycle.
func TestDeadlockTieBreak(t *testing.T) {
	m := NewManager(5*time.Second, 1)
	k1 := Key{Source: "s", ObjectID: 1}
	k2 := Key{Source: "s", ObjectID: 2}
	txnA := NewLocker("Txn-A", 100, anyDeadline())
	txnB := NewLocker("Txn-B", 100, anyDeadline())

	c3, err3 := m.Lock(ctxBackground, txnA, k1, true)
	mustGranted(t, c3, err3)
	c4, err4 := m.Lock(ctxBackground, txnB, k2, true)
	mustGranted(t, c4, err4)

	aBlocked := make(chan *Conflict, 1)
	go func() {
		c, _ := m.Lock(ctxBackground, txnA, k2, true)
		aBlocked <- c
	}()
	time.Sleep(30 * time.Millisecond)

	c, err := m.Lock(ctxBackground, txnB, k1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.Type != Deadlock {
		t.Fatalf("expected Txn-B to be the tie-break victim, got %v", c)
	}

	m.ReleaseLock(txnB, k2)
	select {
	case c := <-aBlocked:
		if c != nil {
			t.Fatalf("expected Txn-A granted once K2 is released, got %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("Txn-A never resolved")
	}
}

func TestPickVictimLargestAge(t *testing.T) {
	young := NewLocker("A", 5, anyDeadline())
	old := NewLocker("B", 1, anyDeadline())
	victim := pickVictim([]*Locker{old, young})
	if victim != young {
		t.Fatalf("expected the locker with the largest age to be chosen, got %v", victim)
	}
}

func TestPickVictimTieBreakByID(t *testing.T) {
	a := NewLocker("Alpha", 5, anyDeadline())
	b := NewLocker("Beta", 5, anyDeadline())
	victim := pickVictim([]*Locker{a, b})
	if victim != b {
		t.Fatalf("expected the lexicographically greater id to win a tie, got %v", victim)
	}
}

func TestDetectDeadlockNoFalsePositive(t *testing.T) {
	m := NewManager(5*time.Second, 1)
	key := Key{Source: "s", ObjectID: 1}
	t10 := NewLocker("T10", 10, anyDeadline())
	t20 := NewLocker("T20", 20, anyDeadline())

	c5, err5 := m.Lock(ctxBackground, t10, key, true)
	mustGranted(t, c5, err5)

	done := make(chan *Conflict, 1)
	go func() {
		c, _ := m.Lock(ctxBackground, t20, key, false)
		done <- c
	}()
	time.Sleep(30 * time.Millisecond)

	// T20 merely blocks; this is not a cycle and must not abort anyone.
	if t20.isDeadlocked() {
		t.Fatal("blocking alone must never produce a deadlock conflict")
	}

	m.ReleaseLock(t10, key)
	select {
	case c := <-done:
		if c != nil {
			t.Fatalf("expected T20 granted, got %v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("T20 never resolved")
	}
}
