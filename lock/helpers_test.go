package lock

import (
	"context"
	"testing"
	"time"
)

// anyDeadline returns a deadline far enough in the future that tests
// exercising grant-rule logic directly (not through Manager) never need
// to reason about it.
func anyDeadline() time.Time {
	return time.Now().Add(time.Hour)
}

func mustGranted(t *testing.T, c *Conflict, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Fatalf("expected grant, got conflict %v", c)
	}
}

var ctxBackground = context.Background()
