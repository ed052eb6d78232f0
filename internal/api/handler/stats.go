package handler

import (
	"context"
	"net/http"

	"github.com/sentinelstack/sentinel-slice/internal/api/response"
	"github.com/sentinelstack/sentinel-slice/internal/elastic"
)

// StatsReader reports memory bank contents.
type StatsReader interface {
	Stats(ctx context.Context) (*elastic.Stats, error)
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/v1/stats.
func NewStatsHandler(store StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, stats)
	}
}
