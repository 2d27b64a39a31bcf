package qid

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeDurable struct {
	mu      sync.Mutex
	data    map[string]*Qid
	putErr  error
	getErr  error
	putCnt  int
	deleted []string
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{data: map[string]*Qid{}}
}

func (f *fakeDurable) Put(_ context.Context, key string, q *Qid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.putCnt++
	cp := *q
	f.data[key] = &cp
	return nil
}

func (f *fakeDurable) Get(_ context.Context, key string) (*Qid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	q, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeDurable) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeDurable) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func testOpts() Options {
	return Options{
		MaxCacheSize: 1 << 20,
		MinCacheSize: 1 << 19,
		MaxEntrySize: 1 << 16,
		MaxAge:       time.Hour,
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	d := newFakeDurable()
	c := NewSizeBounded[*Qid](testOpts(), d, nil)
	defer c.Close()

	q := &Qid{Query: "taxon_name:Kangaroo", DisplayString: "Kangaroo", Filters: []string{"year:2020"}}
	key, err := c.Put(context.Background(), q)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := strconv.ParseInt(key, 10, 64); err != nil {
		t.Fatalf("key %q is not numeric", key)
	}
	if q.Size() <= 0 {
		t.Fatalf("size = %d, want > 0", q.Size())
	}

	got, err := c.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Query != q.Query || got.DisplayString != q.DisplayString {
		t.Fatalf("got %+v, want %+v", got, q)
	}
	if d.len() != 1 {
		t.Fatalf("durable entries = %d, want 1", d.len())
	}
}

func TestKeysStrictlyIncreasing(t *testing.T) {
	d := newFakeDurable()
	c := NewSizeBounded[*Qid](testOpts(), d, nil)
	defer c.Close()

	var last int64 = -1
	for i := 0; i < 200; i++ {
		key, err := c.Put(context.Background(), &Qid{Query: fmt.Sprintf("month:%d", i%12+1)})
		if err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			t.Fatalf("key %q: %v", key, err)
		}
		if n <= last {
			t.Fatalf("key %d not greater than previous %d", n, last)
		}
		last = n
	}
}

func TestGetMissing(t *testing.T) {
	c := NewSizeBounded[*Qid](testOpts(), newFakeDurable(), nil)
	defer c.Close()

	_, err := c.Get(context.Background(), "12345")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var me *MissingError
	if !errors.As(err, &me) || me.Key != "12345" {
		t.Fatalf("err = %#v, want MissingError{Key: 12345}", err)
	}
}

func TestPutOversizeRejected(t *testing.T) {
	opts := testOpts()
	opts.MaxEntrySize = 64
	d := newFakeDurable()
	c := NewSizeBounded[*Qid](opts, d, nil)
	defer c.Close()

	big := &Qid{Query: string(make([]byte, 200))}
	_, err := c.Put(context.Background(), big)
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("err = %v, want ErrEntryTooLarge", err)
	}
	var se *SizeError
	if !errors.As(err, &se) || se.Size != big.Size() || se.Max != 64 {
		t.Fatalf("err = %#v, want SizeError{Size: %d, Max: 64}", err, big.Size())
	}
	if d.len() != 0 || c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("rejected put changed state: durable=%d len=%d size=%d", d.len(), c.Len(), c.Size())
	}
}

func TestDurablePutErrorSurfaces(t *testing.T) {
	d := newFakeDurable()
	d.putErr = errors.New("connection refused")
	c := NewSizeBounded[*Qid](testOpts(), d, nil)
	defer c.Close()

	_, err := c.Put(context.Background(), &Qid{Query: "month:1"})
	if err == nil || !errors.Is(err, d.putErr) {
		t.Fatalf("err = %v, want wrapped durable error", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed put left %d memory entries", c.Len())
	}
}

func TestEvictionFallsThroughToDurable(t *testing.T) {
	q := &Qid{Query: "taxon_name:Kangaroo"}
	entry := q.Size()

	opts := Options{
		MaxCacheSize: entry * 10,
		MinCacheSize: entry * 4,
		MaxEntrySize: entry * 2,
		MaxAge:       time.Hour,
	}
	d := newFakeDurable()
	c := NewSizeBounded[*Qid](opts, d, nil)
	defer c.Close()

	var keys []string
	for i := 0; i < 50; i++ {
		key, err := c.Put(context.Background(), &Qid{Query: "taxon_name:Kangaroo"})
		if err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
		keys = append(keys, key)
		if got := c.Size(); got > opts.MaxCacheSize {
			t.Fatalf("size %d exceeds ceiling %d after put %d", got, opts.MaxCacheSize, i)
		}
	}

	if c.Len() >= 50 {
		t.Fatalf("no eviction happened, %d entries in memory", c.Len())
	}
	for _, key := range keys {
		if _, err := c.Get(context.Background(), key); err != nil {
			t.Fatalf("get %s after eviction: %v", key, err)
		}
	}
}

type sizedEntry struct{ sz int64 }

func (e *sizedEntry) Size() int64        { return e.sz }
func (e *sizedEntry) TTL() time.Duration { return 0 }

type sizedDurable struct {
	mu   sync.Mutex
	data map[string]*sizedEntry
}

func (s *sizedDurable) Put(_ context.Context, key string, e *sizedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	return nil
}

func (s *sizedDurable) Get(_ context.Context, key string) (*sizedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func TestCeilingHeldWhenEntryExceedsEvictionGap(t *testing.T) {
	d := &sizedDurable{data: map[string]*sizedEntry{}}
	c := NewSizeBounded[*sizedEntry](Options{
		MaxCacheSize: 100,
		MinCacheSize: 50,
		MaxEntrySize: 90,
		MaxAge:       time.Hour,
	}, d, nil)
	defer c.Close()

	for i := 0; i < 2; i++ {
		if _, err := c.Put(context.Background(), &sizedEntry{sz: 45}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	// an eviction pass stops at the floor (45 <= 50), leaving no room under
	// the ceiling for a 60-byte entry; it must stay durable-only
	key, err := c.Put(context.Background(), &sizedEntry{sz: 60})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := c.Size(); got > 100 {
		t.Fatalf("size %d exceeds ceiling 100", got)
	}
	got, err := c.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.sz != 60 {
		t.Fatalf("entry size = %d, want 60", got.sz)
	}
}

func TestExpiredEvictedFirst(t *testing.T) {
	q := &Qid{Query: "taxon_name:Kangaroo"}
	entry := q.Size()

	opts := Options{
		MaxCacheSize: entry * 4,
		MinCacheSize: entry * 2,
		MaxEntrySize: entry * 2,
		MaxAge:       time.Hour,
	}
	c := NewSizeBounded[*Qid](opts, newFakeDurable(), nil)
	defer c.Close()

	stale, err := c.Put(context.Background(), &Qid{Query: "taxon_name:Kangaroo", MaxAge: 1})
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := c.Put(context.Background(), &Qid{Query: "taxon_name:Kangaroo"})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	c.clean()

	c.mu.RLock()
	_, staleInMem := c.items[stale]
	_, freshInMem := c.items[fresh]
	c.mu.RUnlock()
	if staleInMem {
		t.Fatal("expired entry survived eviction")
	}
	if !freshInMem {
		t.Fatal("fresh entry evicted while under the floor")
	}
}

func TestRemoveAndEmpty(t *testing.T) {
	d := newFakeDurable()
	c := NewSizeBounded[*Qid](testOpts(), d, nil)
	defer c.Close()

	key, err := c.Put(context.Background(), &Qid{Query: "month:1"})
	if err != nil {
		t.Fatal(err)
	}
	c.Remove(key)
	if c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("remove left len=%d size=%d", c.Len(), c.Size())
	}
	// durable copy survives removal
	if _, err := c.Get(context.Background(), key); err != nil {
		t.Fatalf("get after remove: %v", err)
	}

	if _, err := c.Put(context.Background(), &Qid{Query: "month:2"}); err != nil {
		t.Fatal(err)
	}
	c.Empty()
	if c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("empty left len=%d size=%d", c.Len(), c.Size())
	}
}

func TestConcurrentPutGet(t *testing.T) {
	q := &Qid{Query: "taxon_name:Kangaroo"}
	entry := q.Size()

	opts := Options{
		MaxCacheSize: entry * 20,
		MinCacheSize: entry * 10,
		MaxEntrySize: entry * 2,
		MaxAge:       time.Hour,
	}
	c := NewSizeBounded[*Qid](opts, newFakeDurable(), nil)
	defer c.Close()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	keys := make([][]string, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key, err := c.Put(context.Background(), &Qid{Query: "taxon_name:Kangaroo"})
				if err != nil {
					t.Errorf("put: %v", err)
					return
				}
				keys[w] = append(keys[w], key)
				if _, err := c.Get(context.Background(), key); err != nil {
					t.Errorf("get %s: %v", key, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if got := c.Size(); got > opts.MaxCacheSize {
		t.Fatalf("final size %d exceeds ceiling %d", got, opts.MaxCacheSize)
	}
	seen := map[string]bool{}
	for _, ks := range keys {
		for _, k := range ks {
			if seen[k] {
				t.Fatalf("duplicate key %s", k)
			}
			seen[k] = true
			if _, err := c.Get(context.Background(), k); err != nil {
				t.Fatalf("get %s: %v", k, err)
			}
		}
	}
}
