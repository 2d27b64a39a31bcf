// Package qid stores POST'ed search specifications under short keys, in
// memory and in a durable backing store.
package qid

import "time"

// Qid is one cached search specification. Key is assigned by the store.
type Qid struct {
	Key           string      `json:"key,omitempty"`
	Query         string      `json:"q"`
	DisplayString string      `json:"displayString,omitempty"`
	Wkt           string      `json:"wkt,omitempty"`
	Bbox          *[4]float64 `json:"bbox,omitempty"`
	Filters       []string    `json:"fqs,omitempty"`
	MaxAge        int64       `json:"maxAge,omitempty"`
	Source        string      `json:"source,omitempty"`
	LastUse       int64       `json:"lastUse,omitempty"`
}

// Size is the advisory byte size used for cache admission and eviction:
// UTF-8 lengths of the string fields plus fixed overhead for bbox and the
// three numeric fields.
func (q *Qid) Size() int64 {
	var size int64
	size += int64(len(q.Query))
	size += int64(len(q.DisplayString))
	size += int64(len(q.Wkt))
	if q.Bbox != nil {
		size += 4 * 4
	}
	for _, fq := range q.Filters {
		size += int64(len(fq))
	}
	size += int64(len(q.Source))
	size += 8 + 8 + 8
	return size
}

// TTL is the per-entry expiry override. Zero or negative means the cache
// default applies.
func (q *Qid) TTL() time.Duration {
	if q.MaxAge <= 0 {
		return 0
	}
	return time.Duration(q.MaxAge) * time.Millisecond
}
