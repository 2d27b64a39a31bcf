package query

import "testing"

func TestRangeFacetsBothDirections(t *testing.T) {
	rf := NewRangeFacets(NewMessages(nil))

	if !rf.Has("uncertainty") {
		t.Fatal("uncertainty facet not registered")
	}
	if rf.Has("month") {
		t.Fatal("month should not be a range facet")
	}

	q, ok := rf.QueryForLabel("uncertainty", "between 100 and 500")
	if !ok || q != "coordinate_uncertainty:[101 TO 500]" {
		t.Fatalf("QueryForLabel = %q, %v", q, ok)
	}
	l, ok := rf.LabelForQuery("uncertainty", "coordinate_uncertainty:[101 TO 500]")
	if !ok || l != "between 100 and 500" {
		t.Fatalf("LabelForQuery = %q, %v", l, ok)
	}
	q, ok = rf.QueryForLabel("uncertainty", "Unknown")
	if !ok || q != "-coordinate_uncertainty:[* TO *]" {
		t.Fatalf("QueryForLabel(Unknown) = %q, %v", q, ok)
	}
	if _, ok := rf.QueryForLabel("uncertainty", "no such label"); ok {
		t.Fatal("resolved an unknown label")
	}
}
