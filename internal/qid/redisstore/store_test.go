package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/livingatlas/occquery/internal/qid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)

	q := &qid.Qid{
		Query:         "taxon_name:Kangaroo",
		DisplayString: "Kangaroo",
		Filters:       []string{"year:2020"},
		Bbox:          &[4]float64{112, -44, 154, -9},
		Source:        "webapp",
	}
	if err := s.Put(context.Background(), "1700000000000", q); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(context.Background(), "1700000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Query != q.Query || got.DisplayString != q.DisplayString || got.Source != q.Source {
		t.Fatalf("got %+v, want %+v", got, q)
	}
	if got.Bbox == nil || *got.Bbox != *q.Bbox {
		t.Fatalf("bbox = %v, want %v", got.Bbox, q.Bbox)
	}
	if len(got.Filters) != 1 || got.Filters[0] != "year:2020" {
		t.Fatalf("filters = %v", got.Filters)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "404")
	if !errors.Is(err, qid.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDel(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(context.Background(), "1", &qid.Qid{Query: "month:1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "2", &qid.Qid{Query: "month:2"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Del(context.Background(), "1", "2"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := s.Get(context.Background(), "1"); !errors.Is(err, qid.ErrNotFound) {
		t.Fatalf("key 1 survived delete: %v", err)
	}
	if err := s.Del(context.Background()); err != nil {
		t.Fatalf("empty del: %v", err)
	}
}
