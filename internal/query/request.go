// Package query compiles raw occurrence-search requests into executable
// backend queries and human-readable display strings.
package query

// SearchRequest is the mutable request being compiled. Q, Fq, Qc, Wkt and
// the circle parameters are caller input; FormattedQuery, DisplayString and
// FormattedFq are pipeline output.
type SearchRequest struct {
	Q   string
	Fq  []string
	Qc  string
	Wkt string

	Lat    *float64
	Lon    *float64
	Radius *float64

	FormattedQuery string
	DisplayString  string
	FormattedFq    []string
}

// Facet describes one active filter for UI rendering.
type Facet struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

// AddFqs appends filter clauses, skipping ones already present.
func (r *SearchRequest) AddFqs(fqs ...string) {
	for _, fq := range fqs {
		if fq == "" || contains(r.Fq, fq) {
			continue
		}
		r.Fq = append(r.Fq, fq)
	}
}

func (r *SearchRequest) addFormattedFq(fqs ...string) {
	for _, fq := range fqs {
		if fq == "" {
			continue
		}
		r.FormattedFq = append(r.FormattedFq, fq)
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
