package query

import "fmt"

// RangeFacets maps range-facet filter queries to their display labels and
// back. The reverse direction is what lets a label submitted as a filter be
// rewritten into the real range clause.
type RangeFacets struct {
	queryToLabel map[string]map[string]string
	labelToQuery map[string]map[string]string
}

type rangeBucket struct {
	query string
	label string
}

// NewRangeFacets builds the table for the standard uncertainty facet using
// the message table for label wording.
func NewRangeFacets(msgs *Messages) *RangeFacets {
	lessThan := msgs.Get("rangefacet.less_than", "less than %s")
	between := msgs.Get("rangefacet.between", "between %s and %s")
	greaterThan := msgs.Get("rangefacet.greater_than", "greater than %s")
	unknown := msgs.Get("rangefacet.unknown", "Unknown")

	uncertainty := []rangeBucket{
		{"coordinate_uncertainty:[0 TO 100]", fmt.Sprintf(lessThan, "100")},
		{"coordinate_uncertainty:[101 TO 500]", fmt.Sprintf(between, "100", "500")},
		{"coordinate_uncertainty:[501 TO 1000]", fmt.Sprintf(between, "500", "1000")},
		{"coordinate_uncertainty:[1001 TO 5000]", fmt.Sprintf(between, "1000", "5000")},
		{"coordinate_uncertainty:[5001 TO 10000]", fmt.Sprintf(between, "5000", "10000")},
		{"coordinate_uncertainty:[10001 TO *]", fmt.Sprintf(greaterThan, "10000")},
		{"-coordinate_uncertainty:[* TO *]", unknown},
	}

	rf := &RangeFacets{
		queryToLabel: make(map[string]map[string]string),
		labelToQuery: make(map[string]map[string]string),
	}
	rf.add("uncertainty", uncertainty)
	return rf
}

func (rf *RangeFacets) add(facet string, buckets []rangeBucket) {
	q2l := make(map[string]string, len(buckets))
	l2q := make(map[string]string, len(buckets))
	for _, b := range buckets {
		q2l[b.query] = b.label
		l2q[b.label] = b.query
	}
	rf.queryToLabel[facet] = q2l
	rf.labelToQuery[facet] = l2q
}

// Has reports whether facet is a registered range facet.
func (rf *RangeFacets) Has(facet string) bool {
	if rf == nil {
		return false
	}
	_, ok := rf.labelToQuery[facet]
	return ok
}

// QueryForLabel returns the range clause behind a display label, e.g.
// "between 100 and 500" for the uncertainty facet.
func (rf *RangeFacets) QueryForLabel(facet, label string) (string, bool) {
	if rf == nil {
		return "", false
	}
	q, ok := rf.labelToQuery[facet][label]
	return q, ok
}

// LabelForQuery returns the display label for a range clause.
func (rf *RangeFacets) LabelForQuery(facet, query string) (string, bool) {
	if rf == nil {
		return "", false
	}
	l, ok := rf.queryToLabel[facet][query]
	return l, ok
}
