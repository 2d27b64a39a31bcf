package query

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// memoCache remembers compiled requests by input digest. Results hold deep
// copies so callers can mutate what they get back.
type memoCache struct {
	lru *lru.Cache[uint64, *memoResult]
}

func newMemoCache(size int) *memoCache {
	c, err := lru.New[uint64, *memoResult](size)
	if err != nil {
		return nil
	}
	return &memoCache{lru: c}
}

func (m *memoCache) get(key uint64) (*memoResult, bool) {
	if m == nil || m.lru == nil {
		return nil, false
	}
	return m.lru.Get(key)
}

func (m *memoCache) put(key uint64, res *memoResult) {
	if m == nil || m.lru == nil {
		return
	}
	m.lru.Add(key, res)
}

// memoKey digests the caller-supplied parts of the request before the
// pipeline mutates anything. Requests with no query at all are not memoised.
func memoKey(req *SearchRequest) (uint64, bool) {
	if req.Q == "" && len(req.Fq) == 0 {
		return 0, false
	}
	d := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.WriteString("\x00")
		}
	}
	write(req.Q, req.Qc, req.Wkt)
	write(req.Fq...)
	if req.Lat != nil && req.Lon != nil && req.Radius != nil {
		write(formatFloat(*req.Lat), formatFloat(*req.Lon), formatFloat(*req.Radius))
	}
	return d.Sum64(), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type memoResult struct {
	formattedQuery string
	displayString  string
	formattedFq    []string
	wkt            string
	facets         []Facet
}

func newMemoResult(req *SearchRequest, facets map[string]Facet) *memoResult {
	res := &memoResult{
		formattedQuery: req.FormattedQuery,
		displayString:  req.DisplayString,
		formattedFq:    append([]string(nil), req.FormattedFq...),
		wkt:            req.Wkt,
	}
	for _, f := range facets {
		res.facets = append(res.facets, f)
	}
	return res
}

func (res *memoResult) apply(req *SearchRequest) {
	req.FormattedQuery = res.formattedQuery
	req.DisplayString = res.displayString
	req.FormattedFq = append([]string(nil), res.formattedFq...)
	req.Wkt = res.wkt
}

func (res *memoResult) facetMap() map[string]Facet {
	out := make(map[string]Facet, len(res.facets))
	for _, f := range res.facets {
		out[f.Name] = f
	}
	return out
}
