package access

import "time"

// Transaction is the external collaborator that owns the unit of work
// being coordinated. This package defines the interface only; the
// transaction coordinator that implements it lives outside this core.
type Transaction interface {
	ID() string
	CreationTime() time.Time
	Timeout() time.Duration
	Abort(err error)
	RegisterCompletionListener(l CompletionListener)
}

// CompletionListener is notified once, after every participant of a
// transaction has finished, so that lock release happens only once the
// final outcome is visible to all participants.
type CompletionListener interface {
	AfterCompletion(committed bool)
}

// ConflictSummary classifies the overall outcome recorded for a
// transaction's accessed-objects detail.
type ConflictSummary string

const (
	ConflictNone             ConflictSummary = "NONE"
	ConflictDeadlock         ConflictSummary = "DEADLOCK"
	ConflictAccessNotGranted ConflictSummary = "ACCESS_NOT_GRANTED"
)

// AccessedObjectDetail describes one object a transaction touched.
type AccessedObjectDetail struct {
	Source      string
	ObjectID    any
	ForWrite    bool
	Description string
}

// AccessedObjectsDetail is published to the ProfileSink once a
// transaction completes.
type AccessedObjectsDetail struct {
	TransactionID string
	Objects       []AccessedObjectDetail
	Conflict      ConflictSummary
}

// ProfileSink is the external collaborator that receives per-transaction
// access reports for diagnostics or profiling. This package ships no
// production sink (no persisted format at this layer); NoopProfileSink
// is the default, and this package's own tests use an in-memory sink.
type ProfileSink interface {
	SetAccessedObjectsDetail(detail AccessedObjectsDetail)
}

// NoopProfileSink discards every detail. It is the default sink for a
// freshly constructed AccessCoordinator.
type NoopProfileSink struct{}

func (NoopProfileSink) SetAccessedObjectsDetail(AccessedObjectsDetail) {}
