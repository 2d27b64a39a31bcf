package purge

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// versionDedupe tracks the highest purge version applied per qid key. The
// consumer group redelivers on rebalance, so replayed and stale events must
// not hit the cache tiers again. The window is a bounded LRU; a key falling
// out only risks one redundant removal, which is harmless.
type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &versionDedupe{lru: c}
}

// shouldApply records v for key and reports whether it is newer than every
// version seen so far.
func (d *versionDedupe) shouldApply(key string, v uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, seen := d.lru.Get(key)
	if seen && v <= last {
		return false
	}
	d.lru.Add(key, v)
	return true
}
