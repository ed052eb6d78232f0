package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sentinelstack/sentinel-slice/internal/api/response"
	"github.com/sentinelstack/sentinel-slice/internal/elastic"
	"github.com/sentinelstack/sentinel-slice/internal/metrics"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

const (
	// DefaultListLimit is used when a listing omits the limit parameter.
	DefaultListLimit = 20
	// MaxListLimit caps a single listing page.
	MaxListLimit = 100
)

// SliceWriter stores new slices in the memory bank.
type SliceWriter interface {
	Index(ctx context.Context, s models.Slice) error
}

// SliceLister reads back recently ingested slices.
type SliceLister interface {
	ListRecent(ctx context.Context, domain string, limit int) ([]models.Slice, error)
}

// SliceRemover deletes slices by id.
type SliceRemover interface {
	Delete(ctx context.Context, id string) error
}

// NewIngestHandler returns an http.HandlerFunc for POST /api/v1/slices.
func NewIngestHandler(store SliceWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Domain       string         `json:"domain"`
			StateSummary string         `json:"state_summary"`
			Resolution   string         `json:"resolution"`
			Metadata     map[string]any `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		for field, value := range map[string]string{
			"domain":        req.Domain,
			"state_summary": req.StateSummary,
			"resolution":    req.Resolution,
		} {
			if strings.TrimSpace(value) == "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					field+" is required", nil)
				return
			}
		}
		if req.Metadata == nil {
			req.Metadata = map[string]any{}
		}

		s := models.Slice{
			ID:           uuid.NewString(),
			Domain:       req.Domain,
			StateSummary: req.StateSummary,
			Resolution:   req.Resolution,
			Metadata:     req.Metadata,
			IngestedAt:   time.Now().UTC(),
		}
		if err := store.Index(r.Context(), s); err != nil {
			writeStoreError(w, err)
			return
		}
		metrics.ObserveIngest(1)

		response.Created(w, map[string]string{"id": s.ID})
	}
}

// NewSeedHandler returns an http.HandlerFunc for POST /api/v1/slices/seed.
// The corpus is fixed at startup; each call stores a fresh copy of it.
func NewSeedHandler(store SliceWriter, corpus []models.Slice) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seeded := 0
		for _, s := range corpus {
			s.ID = uuid.NewString()
			s.IngestedAt = time.Now().UTC()
			if err := store.Index(r.Context(), s); err != nil {
				slog.Error("seeding aborted", "seeded", seeded, "total", len(corpus), "error", err)
				writeStoreError(w, err)
				return
			}
			seeded++
		}
		metrics.ObserveIngest(seeded)

		response.JSON(w, map[string]int{"seeded": seeded})
	}
}

// NewListSlicesHandler returns an http.HandlerFunc for GET /api/v1/slices.
func NewListSlicesHandler(store SliceLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := r.URL.Query().Get("domain")

		limit := DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be a positive integer", nil)
				return
			}
			limit = n
		}
		if limit > MaxListLimit {
			limit = MaxListLimit
		}

		slices, err := store.ListRecent(r.Context(), domain, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		response.Collection(w, slices, response.ListMeta{
			Domain: domain,
			Limit:  limit,
			Count:  len(slices),
		})
	}
}

// NewDeleteSliceHandler returns an http.HandlerFunc for
// DELETE /api/v1/slices/{sliceID}.
func NewDeleteSliceHandler(store SliceRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sliceID")
		if id == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "slice id is required", nil)
			return
		}

		if err := store.Delete(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// writeStoreError maps document-store failures onto the error envelope.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, elastic.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Slice not found", nil)
	case errors.Is(err, elastic.ErrTimeout):
		response.Error(w, http.StatusGatewayTimeout, "STORE_UNAVAILABLE",
			"The document store timed out", nil)
	default:
		response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE",
			"The document store is not available", nil)
	}
}
