package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/livingatlas/occquery/internal/qid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "qid.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)

	q := &qid.Qid{Query: "taxon_name:Kangaroo", Filters: []string{"year:2020"}, Source: "webapp"}
	if err := s.Put(context.Background(), "1700000000000", q); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(context.Background(), "1700000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Query != q.Query || got.Source != q.Source || len(got.Filters) != 1 {
		t.Fatalf("got %+v, want %+v", got, q)
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(context.Background(), "1", &qid.Qid{Query: "month:1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "1", &qid.Qid{Query: "month:2"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(context.Background(), "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != "month:2" {
		t.Fatalf("query = %q, want month:2", got.Query)
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
	if err := s.Del(context.Background(), "1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := s.Get(context.Background(), "1"); !errors.Is(err, qid.ErrNotFound) {
		t.Fatalf("key survived delete: %v", err)
	}
}
