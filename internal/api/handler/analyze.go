package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentinelstack/sentinel-slice/internal/ai"
	"github.com/sentinelstack/sentinel-slice/internal/api/response"
	"github.com/sentinelstack/sentinel-slice/internal/metrics"
	"github.com/sentinelstack/sentinel-slice/internal/pipeline"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// DefaultAnalyzeTopK is used when a request leaves top_k unset.
const DefaultAnalyzeTopK = 3

// Runner defines the analysis pipeline the handler depends on.
type Runner interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*models.AnalysisReport, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// latencies may be nil when p95 tracking is not wanted.
func NewAnalyzeHandler(runner Runner, latencies *metrics.LatencyTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symptoms string `json:"symptoms"`
			Domain   string `json:"domain"`
			TopK     int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		topK := req.TopK
		if topK == 0 {
			topK = DefaultAnalyzeTopK
		}

		start := time.Now()
		report, err := runner.Run(r.Context(), pipeline.RunRequest{
			Symptoms: req.Symptoms,
			Domain:   req.Domain,
			TopK:     topK,
		})
		duration := time.Since(start)
		if err != nil {
			if !isValidationError(err) {
				metrics.ObserveRun(metrics.OutcomeError, duration)
			}
			writeRunError(w, err)
			return
		}

		outcome := metrics.OutcomeCompleted
		if len(report.Matches) == 0 {
			outcome = metrics.OutcomeNoMatch
		}
		metrics.ObserveRun(outcome, duration)
		if latencies != nil {
			latencies.Observe(duration)
			if count := latencies.Count(); count >= 20 && count%20 == 0 {
				slog.Info("analysis latency",
					"p95_ms", latencies.Percentile(95).Milliseconds(),
					"samples", count,
				)
			}
		}

		response.JSON(w, report)
	}
}

func isValidationError(err error) bool {
	var verr *pipeline.ValidationError
	return errors.As(err, &verr)
}

// writeRunError maps pipeline failures onto the error envelope, tagging
// stage failures with the stage that aborted the run.
func writeRunError(w http.ResponseWriter, err error) {
	var verr *pipeline.ValidationError
	var rerr *pipeline.RetrievalError
	var cerr *pipeline.CompletionError

	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			verr.Error(), map[string]string{"field": verr.Field})
	case errors.As(err, &rerr):
		response.Error(w, http.StatusBadGateway, "STORE_UNAVAILABLE",
			"Historical incident search failed", map[string]string{"stage": rerr.Stage()})
	case errors.As(err, &cerr):
		writeCompletionError(w, cerr)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func writeCompletionError(w http.ResponseWriter, cerr *pipeline.CompletionError) {
	details := map[string]string{"stage": cerr.Stage()}
	switch {
	case errors.Is(cerr, ai.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
			"AI synthesis timed out", details)
	case errors.Is(cerr, ai.ErrRateLimited):
		response.Error(w, http.StatusTooManyRequests, "RATE_LIMITED",
			"The AI provider is throttling requests", details)
	default:
		response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
			"The AI provider is not available", details)
	}
}
