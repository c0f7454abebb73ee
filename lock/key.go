// Package lock implements the transactional access-coordination core:
// shared/exclusive locks over named keys, deadlock detection, and
// deadline-based waiting integrated with a caller-supplied deadline.
package lock

import "fmt"

// Key identifies a lockable item as a (source, objectID) pair. Source
// namespaces object IDs so unrelated callers cannot collide.
//
// ObjectID must be a comparable value, since Key is used as a Go map
// key; passing a non-comparable ObjectID (a slice, map, or func) panics
// the first time it is used, the same way any comparable-typed map
// access would.
type Key struct {
	Source   string
	ObjectID any
}

// String renders the key for debug logging.
func (k Key) String() string {
	return fmt.Sprintf("%s:%v", k.Source, k.ObjectID)
}
