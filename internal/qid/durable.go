package qid

import (
	"context"
	"time"
)

// Entry is what the size-bounded cache can hold: anything with an advisory
// byte size and an optional per-entry expiry override.
type Entry interface {
	Size() int64
	TTL() time.Duration
}

// Durable is the backing store the cache writes through to on Put and reads
// through from on a memory miss. Implementations return ErrNotFound (wrapped
// or bare) for absent keys. Entries are never expired or evicted here by the
// cache; removal from the durable tier is an administrative concern.
type Durable[V Entry] interface {
	Put(ctx context.Context, key string, v V) error
	Get(ctx context.Context, key string) (V, error)
}
