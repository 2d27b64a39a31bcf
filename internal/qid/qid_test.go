package qid

import (
	"testing"
	"time"
)

func TestQidSize(t *testing.T) {
	q := &Qid{Query: "month:11"}
	// 8 query bytes + 24 numeric overhead
	if got := q.Size(); got != 8+24 {
		t.Fatalf("size = %d, want %d", got, 8+24)
	}

	q.Bbox = &[4]float64{1, 2, 3, 4}
	if got := q.Size(); got != 8+24+16 {
		t.Fatalf("size with bbox = %d, want %d", got, 8+24+16)
	}

	q.Filters = []string{"year:2020", "state:Victoria"}
	want := int64(8+24+16) + int64(len("year:2020")+len("state:Victoria"))
	if got := q.Size(); got != want {
		t.Fatalf("size with filters = %d, want %d", got, want)
	}
}

func TestQidTTL(t *testing.T) {
	q := &Qid{}
	if q.TTL() != 0 {
		t.Fatalf("default TTL = %v, want 0", q.TTL())
	}
	q.MaxAge = 60000
	if q.TTL() != time.Minute {
		t.Fatalf("TTL = %v, want 1m", q.TTL())
	}
}
