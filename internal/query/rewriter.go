package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/livingatlas/occquery/internal/observability"
	"github.com/livingatlas/occquery/internal/qid"
)

// maxDepth bounds qid and spatial recursion. A query that nests deeper than
// this is left as-is rather than risking unbounded expansion.
const maxDepth = 4

var (
	qidToken         = regexp.MustCompile(`qid:(\d+)`)
	matchedNameToken = regexp.MustCompile(`matched_name(_children)?:(?:"([^"]*)"|([^\s)]+))`)
	taxaToken        = regexp.MustCompile(`taxa:(?:"([^"]*)"|([^\s)]+))`)
	speciesListToken = regexp.MustCompile(`species_list:(?:"([^"]*)"|([^\s)]+))`)
	lsidToken        = regexp.MustCompile(`lsid:(?:"([^"]*)"|([^\s)]+))`)
	urnToken         = regexp.MustCompile(`urn:[a-zA-Z0-9.:\-_]+`)
	httpToken        = regexp.MustCompile(`https?://[^\s")]+`)
	spatialObjToken  = regexp.MustCompile(`spatial_object:(?:"([^"]*)"|([^\s)]+))`)
	spatialClause    = regexp.MustCompile(`-?[a-zA-Z_0-9]+:"Intersects\([^"]*\)"`)
	fieldNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)
	displayTermToken = regexp.MustCompile(`(-?)([a-zA-Z_0-9]+):("[^"]*"|\[[^\]]*\]|[^\s)]+)`)
	layerFieldToken  = regexp.MustCompile(`^(?:el|cl)[0-9]+$`)
	emailSuffix      = regexp.MustCompile(`@\S+`)
)

// QidResolver is the slice of the persisted-query store the rewriter needs.
type QidResolver interface {
	Get(ctx context.Context, key string) (*qid.Qid, error)
}

// Config wires the rewriter's collaborators. Lookups left nil degrade the
// corresponding stages to pass-through.
type Config struct {
	Qids   QidResolver
	Names  NameLookup
	Lists  ListLookup
	Layers LayerLookup
	Users  UserLookup
	Uids   UidLookup

	Messages    *Messages
	RangeFacets *RangeFacets

	SpatialField      string
	MaxBooleanClauses int
	CircleSegments    int
	MemoSize          int

	Log zerolog.Logger
}

// Rewriter compiles search requests. Safe for concurrent use; the only
// shared mutable state is the memo, which has its own locking.
type Rewriter struct {
	log    zerolog.Logger
	qids   QidResolver
	names  NameLookup
	lists  ListLookup
	layers LayerLookup
	users  UserLookup
	uids   UidLookup

	messages *Messages
	ranges   *RangeFacets

	spatialField      string
	maxBooleanClauses int
	circleSegments    int

	memo *memoCache
}

// NewRewriter builds a Rewriter from cfg, applying defaults for zero-valued
// tunables.
func NewRewriter(cfg Config) *Rewriter {
	r := &Rewriter{
		log:               cfg.Log,
		qids:              cfg.Qids,
		names:             cfg.Names,
		lists:             cfg.Lists,
		layers:            cfg.Layers,
		users:             cfg.Users,
		uids:              cfg.Uids,
		messages:          cfg.Messages,
		ranges:            cfg.RangeFacets,
		spatialField:      cfg.SpatialField,
		maxBooleanClauses: cfg.MaxBooleanClauses,
		circleSegments:    cfg.CircleSegments,
	}
	if r.messages == nil {
		r.messages = NewMessages(nil)
	}
	if r.ranges == nil {
		r.ranges = NewRangeFacets(r.messages)
	}
	if r.spatialField == "" {
		r.spatialField = "geohash"
	}
	if r.maxBooleanClauses <= 0 {
		r.maxBooleanClauses = 1024
	}
	if r.circleSegments <= 0 {
		r.circleSegments = 18
	}
	if cfg.MemoSize > 0 {
		r.memo = newMemoCache(cfg.MemoSize)
	}
	return r
}

// FormatSearchQuery compiles req in place: FormattedQuery, DisplayString and
// FormattedFq are populated, Fq is restored to its original value afterwards.
// The returned map describes the originally supplied filters for UI chips;
// filters merged in from qid records or the query context are excluded.
//
// A request that already carries a formatted query is left untouched unless
// force is set.
func (r *Rewriter) FormatSearchQuery(ctx context.Context, req *SearchRequest, force bool) map[string]Facet {
	facets := map[string]Facet{}
	if req == nil {
		return facets
	}
	if !force && req.FormattedQuery != "" {
		return facets
	}
	key, hasKey := memoKey(req)
	if hasKey && r.memo != nil {
		if res, ok := r.memo.get(key); ok {
			res.apply(req)
			return res.facetMap()
		}
	}

	start := time.Now()
	originalFqs := append([]string(nil), req.Fq...)
	supplied := make(map[string]bool, len(originalFqs))
	for _, fq := range originalFqs {
		supplied[strings.TrimSpace(fq)] = true
	}
	req.FormattedFq = nil

	req.AddFqs(queryContextFilters(req.Qc)...)

	q := strings.TrimSpace(req.Q)
	if q == "" {
		q = "*:*"
	}
	display, formatted := r.formatQueryTerm(ctx, q, req, 0)
	if formatted == "*:*" {
		display = "[all records]"
	}

	// req.Fq can grow while iterating when a qid record merges filters in.
	for i := 0; i < len(req.Fq); i++ {
		fq := strings.TrimSpace(req.Fq[i])
		if fq == "" {
			continue
		}
		fd, ff := r.formatQueryTerm(ctx, fq, req, 0)
		req.addFormattedFq(ff)
		if !supplied[fq] || fq == "*:*" {
			continue
		}
		if name, value, ok := splitTerm(fq); ok {
			facets[name] = Facet{Name: name, Value: unwrapValue(value), DisplayName: fd}
		}
	}

	if sq := r.buildSpatialQueryString(req); sq != "" {
		req.addFormattedFq(sq)
		display += r.spatialDisplaySuffix(req)
	}

	req.FormattedQuery = formatted
	req.DisplayString = display
	req.Fq = originalFqs

	observability.ObserveFormat("ok", time.Since(start).Seconds())
	if hasKey && r.memo != nil {
		r.memo.put(key, newMemoResult(req, facets))
	}
	return facets
}

// formatQueryTerm runs one query or filter clause through the full pipeline.
func (r *Rewriter) formatQueryTerm(ctx context.Context, term string, req *SearchRequest, depth int) (display, query string) {
	display, query = term, term

	display, query = r.formatQid(ctx, display, query, req, depth)
	display, query = r.formatTerms(display, query)
	display, query = r.formatTaxa(display, query)
	display, query = r.formatSpeciesList(display, query)
	display, query = r.formatLsid(display, query)
	display, query = r.formatUrn(display, query)
	display, query = r.formatHttp(display, query)
	display, query = r.formatTitleMap(display, query)
	display, query = r.formatSpatialObject(display, query)
	var spatial bool
	display, query, spatial = r.formatSpatial(ctx, display, query, req, depth)
	if !spatial {
		display, query = r.formatGeneral(display, query)
	}
	display = r.formatString(display)
	return display, query
}

// formatQid resolves persisted-query references. The first reference replaces
// the clause; later ones append their resolved queries as filters. Filters
// and geometry carried by the record are merged into the request. Unresolved
// references are left literal.
func (r *Rewriter) formatQid(ctx context.Context, display, query string, req *SearchRequest, depth int) (string, string) {
	if r.qids == nil || depth >= maxDepth || !strings.Contains(query, "qid:") {
		return display, query
	}
	replaced := false
	for _, m := range qidToken.FindAllStringSubmatch(query, -1) {
		rec, err := r.qids.Get(ctx, m[1])
		if err != nil {
			r.log.Debug().Str("qid", m[1]).Err(err).Msg("qid reference left unresolved")
			continue
		}
		resolved := unescapeQuery(rec.Query)
		resolvedDisplay := resolved
		if strings.Contains(resolved, "qid:") {
			resolvedDisplay, resolved = r.formatQid(ctx, resolvedDisplay, resolved, req, depth+1)
		}
		if rec.DisplayString != "" {
			resolvedDisplay = rec.DisplayString
		}
		if !replaced {
			query = strings.Replace(query, m[0], resolved, 1)
			display = strings.Replace(display, m[0], resolvedDisplay, 1)
			replaced = true
		} else {
			query = strings.Replace(query, m[0], "*:*", 1)
			display = strings.Replace(display, m[0], "[all records]", 1)
			req.AddFqs(resolved)
		}
		req.AddFqs(rec.Filters...)
		if rec.Wkt != "" {
			r.mergeWkt(req, rec.Wkt)
		}
	}
	return display, query
}

func (r *Rewriter) mergeWkt(req *SearchRequest, wkt string) {
	if req.Wkt == "" {
		req.Wkt = wkt
		return
	}
	req.AddFqs(wktQuery(r.spatialField, wkt))
}

// formatTerms rewrites matched_name and matched_name_children clauses to the
// accepted taxonomy.
func (r *Rewriter) formatTerms(display, query string) (string, string) {
	if !strings.Contains(query, "matched_name") {
		return display, query
	}
	repl := func(g []string, _ int) string {
		children := g[1] == "_children"
		value := g[2]
		if value == "" {
			value = g[3]
		}
		if children {
			if guid, ok := r.lookupGuid(value); ok {
				return "lsid:" + quoteIfNeeded(guid)
			}
			return "taxon_name:" + quoteIfNeeded(value)
		}
		if guid, ok := r.lookupGuid(value); ok {
			if r.names != nil {
				if name, ok := r.names.AcceptedNameForGuid(guid); ok {
					return "taxon_name:" + quoteIfNeeded(name)
				}
			}
		}
		return "matched_name:" + quoteIfNeeded(value)
	}
	query = replaceAllSubmatchFunc(matchedNameToken, query, repl)
	display = replaceAllSubmatchFunc(matchedNameToken, display, repl)
	return display, query
}

// formatTaxa rewrites free-text taxa clauses to identifier queries, falling
// back to a full-text clause when the name does not match.
func (r *Rewriter) formatTaxa(display, query string) (string, string) {
	if !strings.Contains(query, "taxa:") {
		return display, query
	}
	repl := func(g []string, start int) string {
		value := g[1]
		if value == "" {
			value = g[2]
		}
		if guid, ok := r.lookupGuid(value); ok {
			return "lsid:" + quoteIfNeeded(guid)
		}
		return "text:" + quoteIfNeeded(value)
	}
	query = replaceAllSubmatchFunc(taxaToken, query, repl)
	display = replaceAllSubmatchFunc(taxaToken, display, repl)
	return display, query
}

// formatSpeciesList expands a species-list reference into the disjunction of
// its members' taxonomic ranges, chunked to stay under the boolean-clause
// ceiling. A failed list lookup substitutes a match-nothing clause.
func (r *Rewriter) formatSpeciesList(display, query string) (string, string) {
	if r.lists == nil || !strings.Contains(query, "species_list:") {
		return display, query
	}
	queryRepl := func(g []string, _ int) string {
		id := g[1]
		if id == "" {
			id = g[2]
		}
		items, err := r.lists.ItemsForList(id)
		if err != nil {
			r.log.Warn().Str("list", id).Err(err).Msg("species list lookup failed")
			return "(NOT *:*)"
		}
		clauses := make([]string, 0, len(items))
		for _, guid := range items {
			if r.names != nil {
				if tr, ok := r.names.RangeForGuid(guid); ok {
					clauses = append(clauses, fmt.Sprintf("lft:[%d TO %d]", tr.Left, tr.Right))
					continue
				}
			}
			clauses = append(clauses, "taxon_concept_lsid:"+quoteIfNeeded(guid))
		}
		if len(clauses) == 0 {
			return "(NOT *:*)"
		}
		return groupClauses(clauses, r.maxBooleanClauses-10)
	}
	displayRepl := func(g []string, _ int) string {
		id := g[1]
		if id == "" {
			id = g[2]
		}
		if info, err := r.lists.InfoForList(id); err == nil && info.Name != "" {
			return "species_list:" + quoteIfNeeded(info.Name)
		}
		if _, err := r.lists.ItemsForList(id); err != nil {
			return "species_list:" + quoteIfNeeded(id+" (failed)")
		}
		return "species_list:" + quoteIfNeeded(id)
	}
	query = replaceAllSubmatchFunc(speciesListToken, query, queryRepl)
	display = replaceAllSubmatchFunc(speciesListToken, display, displayRepl)
	return display, query
}

// groupClauses ORs clauses together, sub-grouping every groupSize terms.
func groupClauses(clauses []string, groupSize int) string {
	if groupSize < 1 {
		groupSize = 1
	}
	if len(clauses) <= groupSize {
		return "(" + strings.Join(clauses, " OR ") + ")"
	}
	groups := make([]string, 0, len(clauses)/groupSize+1)
	for start := 0; start < len(clauses); start += groupSize {
		end := start + groupSize
		if end > len(clauses) {
			end = len(clauses)
		}
		groups = append(groups, "("+strings.Join(clauses[start:end], " OR ")+")")
	}
	return "(" + strings.Join(groups, " OR ") + ")"
}

// formatLsid rewrites identifier clauses to nested-set range queries. The
// match skips fields ending in _lsid. Unresolved identifiers fall back to a
// concept-identifier clause.
func (r *Rewriter) formatLsid(display, query string) (string, string) {
	if !strings.Contains(query, "lsid:") {
		return display, query
	}
	resolve := func(g []string, start int, src string) (TaxonRange, string, bool) {
		if start > 0 && src[start-1] == '_' {
			return TaxonRange{}, "", false
		}
		id := g[1]
		if id == "" {
			id = g[2]
		}
		id = unescapeQuery(strings.Trim(id, `"`))
		if r.names != nil {
			if tr, ok := r.names.RangeForGuid(id); ok {
				return tr, id, true
			}
		}
		return TaxonRange{}, id, false
	}
	query = replaceAllSubmatchFunc(lsidToken, query, func(g []string, start int) string {
		if start > 0 && query[start-1] == '_' {
			return g[0]
		}
		tr, id, ok := resolve(g, start, query)
		if !ok {
			return `taxon_concept_lsid:"` + id + `"`
		}
		return fmt.Sprintf("lft:[%d TO %d]", tr.Left, tr.Right)
	})
	display = replaceAllSubmatchFunc(lsidToken, display, func(g []string, start int) string {
		if start > 0 && display[start-1] == '_' {
			return g[0]
		}
		tr, id, ok := resolve(g, start, display)
		if !ok {
			return `taxon_concept_lsid:"` + id + `"`
		}
		if tr.Rank == "" {
			return tr.ScientificName
		}
		return titleCase(tr.Rank) + ": " + tr.ScientificName
	})
	return display, query
}

// formatUrn escapes bare urn identifiers so their colons survive the backend
// parser. Identifiers inside double quotes are left alone: earlier stages
// emit quoted fallbacks and the quoting already protects them. The display
// keeps the resolved name when the identifier is known.
func (r *Rewriter) formatUrn(display, query string) (string, string) {
	if !strings.Contains(query, "urn:") {
		return display, query
	}
	query = replaceBareTokens(urnToken, query, escapeQueryChars)
	display = replaceBareTokens(urnToken, display, func(tok string) string {
		if r.names != nil {
			if name, ok := r.names.AcceptedNameForGuid(tok); ok {
				return name
			}
		}
		return tok
	})
	return display, query
}

func (r *Rewriter) formatHttp(display, query string) (string, string) {
	if !strings.Contains(query, "http") {
		return display, query
	}
	query = replaceBareTokens(httpToken, query, escapeQueryChars)
	display = replaceBareTokens(httpToken, display, func(tok string) string {
		if r.names != nil {
			if name, ok := r.names.AcceptedNameForGuid(tok); ok {
				return name
			}
		}
		return tok
	})
	return display, query
}

// formatTitleMap reverses range-facet display labels back into the literal
// range clauses they stand for, and labels range clauses in the display.
func (r *Rewriter) formatTitleMap(display, query string) (string, string) {
	if r.ranges == nil {
		return display, query
	}
	if field, value, ok := splitTerm(query); ok && r.ranges.Has(field) {
		raw := strings.Trim(value, `"`)
		if q, ok := r.ranges.QueryForLabel(field, raw); ok {
			return field + ":" + raw, q
		}
	}
	if facet, label, ok := r.labelForAnyQuery(query); ok {
		return facet + ":" + label, query
	}
	return display, query
}

func (r *Rewriter) labelForAnyQuery(query string) (facet, label string, ok bool) {
	for f := range r.ranges.queryToLabel {
		if l, found := r.ranges.LabelForQuery(f, query); found {
			return f, l, true
		}
	}
	return "", "", false
}

// formatSpatialObject expands stored-geometry references into intersection
// clauses; a missing object substitutes a match-nothing clause.
func (r *Rewriter) formatSpatialObject(display, query string) (string, string) {
	if r.layers == nil || !strings.Contains(query, "spatial_object:") {
		return display, query
	}
	query = replaceAllSubmatchFunc(spatialObjToken, query, func(g []string, _ int) string {
		id := g[1]
		if id == "" {
			id = g[2]
		}
		wkt, ok := r.layers.ObjectWkt(id)
		if !ok {
			r.log.Warn().Str("object", id).Msg("spatial object lookup failed")
			return "(NOT *:*)"
		}
		return wktQuery(r.spatialField, wkt)
	})
	display = replaceAllSubmatchFunc(spatialObjToken, display, func(g []string, _ int) string {
		id := g[1]
		if id == "" {
			id = g[2]
		}
		if name, ok := r.layers.ObjectName(id); ok {
			return name
		}
		return id
	})
	return display, query
}

// formatSpatial detects an intersection clause and recursively formats the
// trailing non-spatial terms. Reports whether it handled the string.
func (r *Rewriter) formatSpatial(ctx context.Context, display, query string, req *SearchRequest, depth int) (string, string, bool) {
	loc := spatialClause.FindStringIndex(query)
	if loc == nil {
		return display, query, false
	}
	if depth >= maxDepth {
		return display, query, true
	}
	prefix, clause, rest := query[:loc[0]], query[loc[0]:loc[1]], strings.TrimSpace(query[loc[1]:])
	untouched := display == query
	if rest == "" {
		if untouched {
			display = "within supplied region"
		}
		return display, prefix + clause, true
	}
	rd, rq := r.formatQueryTerm(ctx, rest, req, depth+1)
	if untouched {
		display = rd + " within supplied region"
	}
	return display, prefix + clause + " " + rq, true
}

// formatGeneral escapes field values token by token, leaving ranges,
// operators, quoted phrases and pre-escaped values alone.
func (r *Rewriter) formatGeneral(display, query string) (string, string) {
	toks := splitQueryTokens(query)
	for i, tok := range toks {
		toks[i] = escapeToken(tok)
	}
	return display, strings.Join(toks, " ")
}

func escapeToken(tok string) string {
	switch tok {
	case "AND", "OR", "NOT", "TO", "*", "*:*", "":
		return tok
	}
	// ranges and grouped sub-expressions pass through untouched
	if strings.ContainsAny(tok, `\"[]()`) {
		return tok
	}
	if strings.HasPrefix(tok, "urn") || strings.HasPrefix(tok, "http") {
		return tok
	}
	neg := ""
	rest := tok
	if strings.HasPrefix(rest, "-") {
		neg, rest = "-", rest[1:]
	}
	if i := strings.Index(rest, ":"); i > 0 {
		field, value := rest[:i], rest[i+1:]
		if value == "" || !fieldNamePattern.MatchString(field) {
			return tok
		}
		return neg + field + ":" + escapeValue(value)
	}
	return neg + escapeValue(rest)
}

// splitQueryTokens splits on whitespace outside double quotes, keeping
// quoted phrases attached to their field prefix.
func splitQueryTokens(s string) []string {
	var toks []string
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			b.WriteByte(c)
		case !inQuote && (c == ' ' || c == '\t'):
			if b.Len() > 0 {
				toks = append(toks, b.String())
				b.Reset()
			}
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() > 0 {
		toks = append(toks, b.String())
	}
	return toks
}

// formatString localises the display string: facet names from the message
// table, month numbers to names, year ranges to spans, user ids to display
// names with masked emails, and collectory uids to registry names.
func (r *Rewriter) formatString(display string) string {
	return replaceAllSubmatchFunc(displayTermToken, display, func(g []string, _ int) string {
		neg, field, rawValue := g[1], g[2], g[3]
		quoted := strings.HasPrefix(rawValue, `"`)
		value := unwrapValue(rawValue)

		switch {
		case field == "month":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= 12 {
				value = time.Month(n).String()
			}
		case field == "occurrence_year" || field == "year":
			value = yearRangeLabel(value)
		case field == "assertion_user_id" || field == "alau_user_id" || field == "user_id":
			if name, ok := r.lookupUser(value); ok {
				value = name
			} else {
				value = emailSuffix.ReplaceAllString(value, "@..")
			}
		case strings.HasSuffix(field, "_uid"):
			if r.uids != nil {
				if name, ok := r.uids.DisplayString(field, value); ok {
					value = name
				}
			}
		case layerFieldToken.MatchString(field):
			if r.layers != nil {
				if name, ok := r.layers.NameForLayerField(field); ok {
					return neg + name + ":" + requote(value, quoted)
				}
			}
		}

		label := r.messages.Get("facet."+field, field)
		return neg + label + ":" + requote(value, quoted)
	})
}

func (r *Rewriter) lookupGuid(name string) (string, bool) {
	if r.names == nil {
		return "", false
	}
	return r.names.GuidForName(name)
}

func (r *Rewriter) lookupUser(id string) (string, bool) {
	if r.users == nil {
		return "", false
	}
	return r.users.DisplayName(id)
}

func (r *Rewriter) spatialDisplaySuffix(req *SearchRequest) string {
	if req.Lat != nil && req.Lon != nil && req.Radius != nil {
		return fmt.Sprintf(" - within %gkm of point(%g, %g)", *req.Radius, *req.Lat, *req.Lon)
	}
	return " - within user defined polygon"
}

// queryContextFilters translates a query context into filter clauses.
func queryContextFilters(qc string) []string {
	if strings.TrimSpace(qc) == "" {
		return nil
	}
	parts := strings.Split(qc, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(p, "hub:", "data_hub_uid:"))
	}
	return out
}

// yearRangeLabel turns "[1980-01-01T00:00:00Z TO 1989-12-31T23:59:59Z]"
// into "1980-1989"; anything else is returned unchanged.
func yearRangeLabel(value string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	parts := strings.SplitN(inner, " TO ", 2)
	if len(parts) != 2 {
		return value
	}
	lo, hi := yearOf(parts[0]), yearOf(parts[1])
	if lo == "" || hi == "" {
		return value
	}
	if lo == hi {
		return lo
	}
	return lo + "-" + hi
}

func yearOf(s string) string {
	if len(s) < 4 {
		return ""
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return ""
		}
	}
	return s[:4]
}

func splitTerm(s string) (field, value string, ok bool) {
	i := strings.Index(s, ":")
	if i <= 0 {
		return "", "", false
	}
	field = s[:i]
	if strings.HasPrefix(field, "-") {
		field = field[1:]
	}
	if !fieldNamePattern.MatchString(field) {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func unwrapValue(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func requote(s string, quoted bool) string {
	if quoted {
		return `"` + s + `"`
	}
	return s
}

func quoteIfNeeded(v string) string {
	if v == "" || strings.HasPrefix(v, "[") || strings.HasPrefix(v, `"`) {
		return v
	}
	if strings.ContainsAny(v, " :") {
		return `"` + v + `"`
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// replaceBareTokens is ReplaceAllStringFunc restricted to matches that sit
// outside double-quoted regions.
func replaceBareTokens(re *regexp.Regexp, s string, repl func(tok string) string) string {
	locs := re.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		if strings.Count(s[:loc[0]], `"`)%2 == 1 {
			b.WriteString(s[loc[0]:loc[1]])
		} else {
			b.WriteString(repl(s[loc[0]:loc[1]]))
		}
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// replaceAllSubmatchFunc is ReplaceAllStringFunc with capture groups and the
// match offset exposed to the callback.
func replaceAllSubmatchFunc(re *regexp.Regexp, s string, repl func(groups []string, start int) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		groups := make([]string, 0, len(loc)/2)
		for i := 0; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
			} else {
				groups = append(groups, s[loc[i]:loc[i+1]])
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(repl(groups, loc[0]))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
