package qid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livingatlas/occquery/internal/observability"
)

// Options bound the in-memory tier of a SizeBoundedCache.
type Options struct {
	// MaxCacheSize is the hard ceiling on the aggregate advisory size of the
	// in-memory tier, in bytes.
	MaxCacheSize int64
	// MinCacheSize is the floor an eviction pass shrinks the tier to.
	MinCacheSize int64
	// MaxEntrySize is the single-entry admission ceiling.
	MaxEntrySize int64
	// MaxAge expires entries that have not been read for this long. Entries
	// may override it via their TTL.
	MaxAge time.Duration
}

// SizeBoundedCache is a thread-safe two-tier store: a size-bounded in-memory
// map with asynchronous least-recently-used eviction, backed by a durable
// store written through on every Put and read through on a memory miss.
//
// Eviction is eventually consistent: a Put racing an eviction snapshot may
// see its entry removed immediately, which is safe because the entry is
// already durable.
type SizeBoundedCache[V Entry] struct {
	opts    Options
	durable Durable[V]
	log     *slog.Logger

	mu    sync.RWMutex
	items map[string]*item[V]

	// sizeMu guards the aggregate counter so the ceiling check cannot race
	// concurrent inserts.
	sizeMu sync.Mutex
	size   int64

	kick chan struct{}
	done chan struct{}

	idMu   sync.Mutex
	lastID int64
}

type item[V Entry] struct {
	val     V
	size    int64
	lastUse atomic.Int64
}

func NewSizeBounded[V Entry](opts Options, durable Durable[V], log *slog.Logger) *SizeBoundedCache[V] {
	if log == nil {
		log = slog.Default()
	}
	if opts.MinCacheSize > opts.MaxCacheSize {
		opts.MinCacheSize = opts.MaxCacheSize / 2
	}
	c := &SizeBoundedCache[V]{
		opts:    opts,
		durable: durable,
		log:     log,
		items:   make(map[string]*item[V]),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.cleanerLoop()
	return c
}

// Put assigns the next key, persists v durably and admits it to the memory
// tier. Keys are strictly increasing when compared numerically. Returns
// ErrEntryTooLarge (wrapped) without storing anything when v exceeds the
// single-entry ceiling. An entry that cannot fit under the aggregate ceiling
// even after an eviction pass stays durable-only; Get falls through to it.
func (c *SizeBoundedCache[V]) Put(ctx context.Context, v V) (string, error) {
	sz := v.Size()
	if maxEntry := c.maxEntrySize(); sz > maxEntry {
		observability.ObserveCacheOp("put", ErrEntryTooLarge)
		return "", &SizeError{Size: sz, Max: maxEntry}
	}

	key := c.nextKey()

	start := time.Now()
	err := c.durable.Put(ctx, key, v)
	observability.ObserveStoreOp("put", err, time.Since(start).Seconds())
	if err != nil {
		observability.ObserveCacheOp("put", err)
		return "", fmt.Errorf("durable put %q: %w", key, err)
	}

	if !c.admit(key, v, sz) {
		// over the ceiling; shrink synchronously and try once more
		c.clean()
		if !c.admit(key, v, sz) {
			c.log.Debug("entry too large for memory tier, serving from durable store", "key", key, "size", sz)
		}
	}

	observability.ObserveCacheOp("put", nil)
	return key, nil
}

// Get refreshes the entry's last-use time on a memory hit. On a memory miss
// it falls through to the durable tier; durable hits are served directly
// rather than re-admitted, so a scan of cold keys cannot evict the working
// set. A miss in both tiers returns ErrNotFound (wrapped).
func (c *SizeBoundedCache[V]) Get(ctx context.Context, key string) (V, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		it.lastUse.Store(time.Now().UnixMilli())
		observability.IncTierResult("memory", true)
		observability.ObserveCacheOp("get", nil)
		return it.val, nil
	}
	observability.IncTierResult("memory", false)

	start := time.Now()
	v, err := c.durable.Get(ctx, key)
	observability.ObserveStoreOp("get", err, time.Since(start).Seconds())
	if err != nil {
		var zero V
		if errors.Is(err, ErrNotFound) {
			observability.IncTierResult("durable", false)
			observability.ObserveCacheOp("get", ErrNotFound)
			return zero, &MissingError{Key: key}
		}
		observability.ObserveCacheOp("get", err)
		return zero, fmt.Errorf("durable get %q: %w", key, err)
	}
	observability.IncTierResult("durable", true)
	observability.ObserveCacheOp("get", nil)
	return v, nil
}

// Remove drops a key from the memory tier. The durable tier is untouched.
func (c *SizeBoundedCache[V]) Remove(key string) {
	c.removeItem(key)
	observability.ObserveCacheOp("remove", nil)
}

// Size is the aggregate advisory size of the memory tier in bytes.
func (c *SizeBoundedCache[V]) Size() int64 {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	return c.size
}

func (c *SizeBoundedCache[V]) SetMaxCacheSize(n int64) {
	c.sizeMu.Lock()
	c.opts.MaxCacheSize = n
	c.sizeMu.Unlock()
	c.scheduleClean()
}

func (c *SizeBoundedCache[V]) SetMinCacheSize(n int64) {
	c.sizeMu.Lock()
	c.opts.MinCacheSize = n
	c.sizeMu.Unlock()
	c.scheduleClean()
}

func (c *SizeBoundedCache[V]) SetMaxEntrySize(n int64) {
	c.sizeMu.Lock()
	c.opts.MaxEntrySize = n
	c.sizeMu.Unlock()
}

func (c *SizeBoundedCache[V]) maxEntrySize() int64 {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	return c.opts.MaxEntrySize
}

func (c *SizeBoundedCache[V]) minCacheSize() int64 {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	return c.opts.MinCacheSize
}

func (c *SizeBoundedCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *SizeBoundedCache[V]) IsFull() bool {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	return c.size >= c.opts.MaxCacheSize
}

// Empty clears the memory tier. The durable tier is untouched.
func (c *SizeBoundedCache[V]) Empty() {
	c.mu.Lock()
	c.items = make(map[string]*item[V])
	c.mu.Unlock()

	c.sizeMu.Lock()
	c.size = 0
	c.sizeMu.Unlock()
	observability.SetCacheSize(0, 0)
}

// Close stops the background cleaner.
func (c *SizeBoundedCache[V]) Close() {
	close(c.done)
}

func (c *SizeBoundedCache[V]) admit(key string, v V, sz int64) bool {
	c.sizeMu.Lock()
	if c.size+sz > c.opts.MaxCacheSize {
		c.sizeMu.Unlock()
		return false
	}
	if c.size+sz > c.triggerSize() {
		c.scheduleClean()
	}
	c.size += sz
	size := c.size
	c.sizeMu.Unlock()

	it := &item[V]{val: v, size: sz}
	it.lastUse.Store(time.Now().UnixMilli())
	c.mu.Lock()
	c.items[key] = it
	n := len(c.items)
	c.mu.Unlock()

	observability.SetCacheSize(size, n)
	return true
}

// triggerSize is the midpoint between the floor and the ceiling; crossing it
// schedules an eviction pass.
func (c *SizeBoundedCache[V]) triggerSize() int64 {
	return c.opts.MinCacheSize + (c.opts.MaxCacheSize-c.opts.MinCacheSize)/2
}

// scheduleClean coalesces: a kick while a pass is pending or running does
// not queue another.
func (c *SizeBoundedCache[V]) scheduleClean() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *SizeBoundedCache[V]) cleanerLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.kick:
		}
		c.runClean()
	}
}

// runClean keeps a panicking eviction pass from killing the cleaner; the
// loop continues with the next kick.
func (c *SizeBoundedCache[V]) runClean() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("cache cleaner panicked, restarting", "panic", r)
		}
	}()
	c.clean()
}

type evictCandidate struct {
	key     string
	size    int64
	lastUse int64
	expired bool
}

// clean removes expired entries, then least-recently-used entries until the
// aggregate size is at or below the floor.
func (c *SizeBoundedCache[V]) clean() {
	now := time.Now().UnixMilli()

	c.mu.RLock()
	cands := make([]evictCandidate, 0, len(c.items))
	for key, it := range c.items {
		ttl := it.val.TTL()
		if ttl <= 0 {
			ttl = c.opts.MaxAge
		}
		lu := it.lastUse.Load()
		cands = append(cands, evictCandidate{
			key:     key,
			size:    it.size,
			lastUse: lu,
			expired: ttl > 0 && now-lu > ttl.Milliseconds(),
		})
	}
	c.mu.RUnlock()

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].expired != cands[j].expired {
			return cands[i].expired
		}
		return cands[i].lastUse < cands[j].lastUse
	})

	total := c.Size()
	floor := c.minCacheSize()
	removed := 0
	for _, cd := range cands {
		if !cd.expired && total <= floor {
			break
		}
		if c.removeItem(cd.key) {
			total -= cd.size
			removed++
		}
	}

	if removed > 0 {
		observability.AddEvicted(removed)
		c.log.Debug("evicted cached entries", "removed", removed, "size", c.Size())
	}
}

func (c *SizeBoundedCache[V]) removeItem(key string) bool {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok {
		delete(c.items, key)
	}
	n := len(c.items)
	c.mu.Unlock()
	if !ok {
		return false
	}

	c.sizeMu.Lock()
	c.size -= it.size
	if c.size < 0 {
		c.size = 0
	}
	size := c.size
	c.sizeMu.Unlock()

	observability.SetCacheSize(size, n)
	return true
}

// nextKey returns the next store key: unix milliseconds fenced so that keys
// issued later always compare greater, with no contiguity guarantee.
func (c *SizeBoundedCache[V]) nextKey() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return strconv.FormatInt(id, 10)
}
