package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/sentinelstack/sentinel-slice/internal/api/middleware"
	"github.com/sentinelstack/sentinel-slice/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit may be nil when no Redis is configured; limiting is then skipped.
type Dependencies struct {
	RateLimit *mw.RateLimit

	Metrics http.Handler

	HealthHandler      http.HandlerFunc
	SetupHandler       http.HandlerFunc
	IngestHandler      http.HandlerFunc
	SeedHandler        http.HandlerFunc
	ListSlicesHandler  http.HandlerFunc
	DeleteSliceHandler http.HandlerFunc
	SearchHandler      http.HandlerFunc
	AnalyzeHandler     http.HandlerFunc
	StatsHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public probes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	// Rate-limited API surface
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/setup", orNotImplemented(deps.SetupHandler))

		r.Post("/api/v1/slices", orNotImplemented(deps.IngestHandler))
		r.Post("/api/v1/slices/seed", orNotImplemented(deps.SeedHandler))
		r.Get("/api/v1/slices", orNotImplemented(deps.ListSlicesHandler))
		r.Delete("/api/v1/slices/{sliceID}", orNotImplemented(deps.DeleteSliceHandler))

		r.Post("/api/v1/search", orNotImplemented(deps.SearchHandler))
		r.Post("/api/v1/analyze", orNotImplemented(deps.AnalyzeHandler))

		r.Get("/api/v1/stats", orNotImplemented(deps.StatsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
