package lock

import (
	"fmt"
	"hash/maphash"
	"sync"
)

// shard is one hash-partitioned slice of the Key -> lockState map. Each
// shard has its own mutex, giving the manager numKeyMaps-way
// concurrency; a lockState exists in a shard's map only while some
// Locker holds or waits on it.
type shard struct {
	mu    sync.Mutex
	locks map[Key]*lockState
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{locks: make(map[Key]*lockState)}
	}
	return shards
}

var shardSeed = maphash.MakeSeed()

// shardIndex hashes key to a shard in [0, numShards).
func shardIndex(key Key, numShards int) int {
	var h maphash.Hash
	h.SetSeed(shardSeed)
	h.WriteString(key.Source)
	h.WriteString(keyObjectIDString(key.ObjectID))
	return int(h.Sum64() % uint64(numShards))
}

// keyObjectIDString renders ObjectID for hashing purposes only; it need
// not be unique, only stable, since equality is still decided by Key's
// own struct equality once a bucket is found.
func keyObjectIDString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// getOrCreate returns the lockState for key, creating an empty one if
// none exists. Must be called with sh.mu held.
func (sh *shard) getOrCreate(key Key) *lockState {
	ls, ok := sh.locks[key]
	if !ok {
		ls = &lockState{}
		sh.locks[key] = ls
	}
	return ls
}

// get returns the lockState for key without creating one. Must be
// called with sh.mu held.
func (sh *shard) get(key Key) *lockState {
	return sh.locks[key]
}

// gcIfEmpty removes key's lockState from the shard if it has become
// empty. Must be called with sh.mu held.
func (sh *shard) gcIfEmpty(key Key, ls *lockState) {
	if ls.empty() {
		delete(sh.locks, key)
	}
}
