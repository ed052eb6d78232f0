// Package esquery constructs Elasticsearch query bodies for the slice index.
// All methods are pure functions with no side effects. Zero value is ready to use.
package esquery

// Builder constructs search request bodies as JSON-marshalable maps.
type Builder struct{}

// SearchParams defines inputs for lexical and semantic ranking queries.
type SearchParams struct {
	Query  string
	Domain string // optional exact-match filter
	Size   int
}

// Lexical returns a term-match relevance query over state_summary.
func (b Builder) Lexical(p SearchParams) map[string]any {
	match := map[string]any{"match": map[string]any{"state_summary": p.Query}}
	return map[string]any{
		"query": b.withDomainFilter(match, p.Domain),
		"size":  p.Size,
	}
}

// Semantic returns an embedding-similarity query over state_summary. The
// embedding itself is produced server-side by the index's inference endpoint.
func (b Builder) Semantic(p SearchParams) map[string]any {
	semantic := map[string]any{
		"semantic": map[string]any{
			"field": "state_summary",
			"query": p.Query,
		},
	}
	return map[string]any{
		"query": b.withDomainFilter(semantic, p.Domain),
		"size":  p.Size,
	}
}

// ListRecent returns a query for the newest slices, optionally scoped to a domain.
func (b Builder) ListRecent(domain string, size int) map[string]any {
	query := map[string]any{"match_all": map[string]any{}}
	if domain != "" {
		query = map[string]any{"term": map[string]any{"domain": domain}}
	}
	return map[string]any{
		"query": query,
		"sort":  []any{map[string]any{"ingested_at": map[string]any{"order": "desc"}}},
		"size":  size,
	}
}

// CountByDomain returns a zero-hit aggregation counting slices per domain.
func (b Builder) CountByDomain(maxDomains int) map[string]any {
	return map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"by_domain": map[string]any{
				"terms": map[string]any{"field": "domain", "size": maxDomains},
			},
		},
	}
}

// withDomainFilter wraps query in a bool filter on domain when one is set.
// The filter is a hard constraint, never a ranking signal.
func (b Builder) withDomainFilter(query map[string]any, domain string) map[string]any {
	if domain == "" {
		return query
	}
	return map[string]any{
		"bool": map[string]any{
			"must":   []any{query},
			"filter": []any{map[string]any{"term": map[string]any{"domain": domain}}},
		},
	}
}
