package access

import (
	"context"
	"time"

	"github.com/paranblues/reddwarf/access/metrics"
	"github.com/paranblues/reddwarf/lock"
)

// Reporter is the typed view services use to report intended reads and
// writes of objects identified by T, from a single named source.
type Reporter[T comparable] struct {
	name        string
	coordinator *AccessCoordinator
}

// RegisterAccessSource returns a Reporter bound to name. It is
// idempotent with respect to creating Lockers: registering a source
// never itself creates one (spec.md section 4.4) — it can safely be
// called more than once for the same name.
func RegisterAccessSource[T comparable](c *AccessCoordinator, name string) *Reporter[T] {
	return &Reporter[T]{name: name, coordinator: c}
}

// ReportObjectAccess resolves txn's locker, attempts the lock at mode,
// and on any conflict aborts the transaction with the matching typed
// exception (spec.md section 4.4), which is also returned to the
// caller. A nil return means the lock was granted.
func (r *Reporter[T]) ReportObjectAccess(ctx context.Context, txn Transaction, objectID T, mode lock.Mode, description string) error {
	locker, err := r.coordinator.lockerFor(txn)
	if err != nil {
		return err
	}

	key := lock.Key{Source: r.name, ObjectID: objectID}
	if description != "" {
		locker.SetDescription(key, description)
	}

	start := time.Now()
	conflict, lockErr := r.coordinator.manager.Lock(ctx, locker, key, mode == lock.Write)
	if lockErr != nil {
		return lockErr
	}
	metrics.RecordWaitDuration(r.name, time.Since(start).Seconds())

	if conflict == nil {
		metrics.RecordGrant(r.name, mode.String())
		return nil
	}

	metrics.RecordConflict(r.name, conflict.Type.String())

	var ctxErr error
	if ctx != nil {
		ctxErr = ctx.Err()
	}
	abortErr := conflictToError(txn.ID(), key, conflict, ctxErr)
	txn.Abort(abortErr)
	return abortErr
}

// SetObjectDescription records a debug label for objectID without
// acquiring a lock. The first description set for a given key wins.
func (r *Reporter[T]) SetObjectDescription(txn Transaction, objectID T, description string) {
	locker, err := r.coordinator.lockerFor(txn)
	if err != nil {
		return
	}
	locker.SetDescription(lock.Key{Source: r.name, ObjectID: objectID}, description)
}
