package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sentinelstack/sentinel-slice/internal/api/response"
	"github.com/sentinelstack/sentinel-slice/internal/metrics"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

const (
	// DefaultSearchTopK is used when a request leaves top_k unset.
	DefaultSearchTopK = 5
	// MaxSearchTopK caps how many fused results one search may request.
	MaxSearchTopK = 20
)

// Searcher defines the fused-search capability the handler depends on.
type Searcher interface {
	Fuse(ctx context.Context, query, domain string, topK int) ([]models.RankedHit, error)
}

// searchHit flattens a ranked hit for the wire: fused score plus the slice
// fields a responder needs to judge relevance at a glance.
type searchHit struct {
	ID           string         `json:"id"`
	Score        float64        `json:"score"`
	Rank         int            `json:"rank"`
	Domain       string         `json:"domain"`
	StateSummary string         `json:"state_summary"`
	Resolution   string         `json:"resolution"`
	Metadata     map[string]any `json:"metadata"`
}

// NewSearchHandler returns an http.HandlerFunc for POST /api/v1/search.
func NewSearchHandler(searcher Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query  string `json:"query"`
			Domain string `json:"domain"`
			TopK   int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.Query) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "query is required", nil)
			return
		}
		topK := req.TopK
		if topK == 0 {
			topK = DefaultSearchTopK
		}
		if topK < 1 || topK > MaxSearchTopK {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("top_k must be between 1 and %d", MaxSearchTopK), nil)
			return
		}

		hits, err := searcher.Fuse(r.Context(), req.Query, req.Domain, topK)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		metrics.ObserveSearch()

		results := make([]searchHit, 0, len(hits))
		for _, h := range hits {
			results = append(results, searchHit{
				ID:           h.ID,
				Score:        h.Score,
				Rank:         h.Rank,
				Domain:       h.Slice.Domain,
				StateSummary: h.Slice.StateSummary,
				Resolution:   h.Slice.Resolution,
				Metadata:     h.Slice.Metadata,
			})
		}
		response.Collection(w, results, response.ListMeta{
			Domain: req.Domain,
			Limit:  topK,
			Count:  len(results),
		})
	}
}
