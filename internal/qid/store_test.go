package qid

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(d Durable[*Qid]) *Store {
	return NewStore(testOpts(), d, time.Second, nil)
}

func TestStorePutGet(t *testing.T) {
	s := newTestStore(newFakeDurable())
	defer s.Close()

	bbox := &[4]float64{112.0, -44.0, 154.0, -9.0}
	key, err := s.Put(context.Background(), "taxon_name:Kangaroo", "Kangaroo", "", bbox, []string{"year:2020"}, 0, "webapp")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Key != key {
		t.Fatalf("key = %q, want %q", got.Key, key)
	}
	if got.Query != "taxon_name:Kangaroo" || got.Source != "webapp" {
		t.Fatalf("got %+v", got)
	}
	if got.Bbox == nil || *got.Bbox != *bbox {
		t.Fatalf("bbox = %v, want %v", got.Bbox, bbox)
	}
	if got.LastUse == 0 {
		t.Fatal("LastUse not set")
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(newFakeDurable())
	defer s.Close()

	_, err := s.Get(context.Background(), "99999")
	var me *MissingError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MissingError", err)
	}
}

func TestStorePutOversize(t *testing.T) {
	d := newFakeDurable()
	opts := testOpts()
	opts.MaxEntrySize = 32
	s := NewStore(opts, d, time.Second, nil)
	defer s.Close()

	_, err := s.Put(context.Background(), string(make([]byte, 100)), "", "", nil, nil, 0, "")
	var se *SizeError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SizeError", err)
	}
	if d.len() != 0 {
		t.Fatal("oversize put reached the durable tier")
	}
}

func TestQidFromQuery(t *testing.T) {
	s := newTestStore(newFakeDurable())
	defer s.Close()

	key, err := s.Put(context.Background(), "month:11", "", "", nil, nil, 0, "")
	if err != nil {
		t.Fatal(err)
	}

	q, ok := s.QidFromQuery(context.Background(), "qid:"+key+" AND year:2020")
	if !ok {
		t.Fatal("qid token not resolved")
	}
	if q.Query != "month:11" {
		t.Fatalf("query = %q", q.Query)
	}

	if _, ok := s.QidFromQuery(context.Background(), "qid:424242"); ok {
		t.Fatal("resolved a nonexistent qid")
	}
	if _, ok := s.QidFromQuery(context.Background(), "month:11"); ok {
		t.Fatal("resolved a query with no qid token")
	}
}
