package qid

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// QidPattern matches qid tokens embedded in query strings.
var QidPattern = regexp.MustCompile(`qid:[0-9]+`)

// Store is the persisted-query store: a SizeBoundedCache of Qid records with
// user-facing error types and query-token resolution.
type Store struct {
	cache     *SizeBoundedCache[*Qid]
	opTimeout time.Duration
	log       *slog.Logger
}

func NewStore(opts Options, durable Durable[*Qid], opTimeout time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Store{
		cache:     NewSizeBounded(opts, durable, log),
		opTimeout: opTimeout,
		log:       log,
	}
}

// Put stores a search specification and returns its key. Returns a
// *SizeError when the record exceeds the single-entry ceiling; nothing is
// stored in that case.
func (s *Store) Put(ctx context.Context, query, displayString, wkt string, bbox *[4]float64, filters []string, maxAge int64, source string) (string, error) {
	q := &Qid{
		Query:         query,
		DisplayString: displayString,
		Wkt:           wkt,
		Bbox:          bbox,
		Filters:       filters,
		MaxAge:        maxAge,
		Source:        source,
		LastUse:       time.Now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	key, err := s.cache.Put(ctx, q)
	if err != nil {
		return "", err
	}
	q.Key = key
	return key, nil
}

// Get returns the record stored under key, from memory or the durable tier.
// Returns a *MissingError when the key is unknown to both.
func (s *Store) Get(ctx context.Context, key string) (*Qid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	q, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if q.Key == "" {
		q.Key = key
	}
	return q, nil
}

// QidFromQuery resolves the first qid token in a query string, if any.
func (s *Store) QidFromQuery(ctx context.Context, query string) (*Qid, bool) {
	if !strings.Contains(query, "qid:") {
		return nil, false
	}
	m := QidPattern.FindString(query)
	if m == "" {
		return nil, false
	}
	q, err := s.Get(ctx, strings.TrimPrefix(m, "qid:"))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("qid lookup failed", "token", m, "err", err)
		}
		return nil, false
	}
	return q, true
}

func (s *Store) Remove(key string) { s.cache.Remove(key) }

func (s *Store) Size() int64 { return s.cache.Size() }

func (s *Store) Len() int { return s.cache.Len() }

func (s *Store) IsFull() bool { return s.cache.IsFull() }

func (s *Store) Empty() { s.cache.Empty() }

func (s *Store) Close() { s.cache.Close() }

func (s *Store) SetMaxCacheSize(n int64) { s.cache.SetMaxCacheSize(n) }

func (s *Store) SetMinCacheSize(n int64) { s.cache.SetMinCacheSize(n) }

func (s *Store) SetMaxEntrySize(n int64) { s.cache.SetMaxEntrySize(n) }
