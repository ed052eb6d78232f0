package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sentinelstack/sentinel-slice/internal/api/response"
)

// Bootstrapper prepares the document store for ingestion: the embedding
// inference endpoint, the slice index, and the seeding pipeline.
type Bootstrapper interface {
	ConfigureInference(ctx context.Context, apiKey, modelID string) error
	EnsureIndex(ctx context.Context) error
	EnsurePipeline(ctx context.Context) error
}

// SetupDefaults supplies fallbacks for fields omitted from a setup request.
type SetupDefaults struct {
	OpenAIAPIKey   string
	EmbeddingModel string
}

// NewSetupHandler returns an http.HandlerFunc for POST /api/v1/setup. Setup
// is idempotent: infrastructure that already exists is left untouched.
func NewSetupHandler(store Bootstrapper, defaults SetupDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OpenAIAPIKey   string `json:"openai_api_key"`
			EmbeddingModel string `json:"embedding_model"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
		}

		apiKey := req.OpenAIAPIKey
		if apiKey == "" {
			apiKey = defaults.OpenAIAPIKey
		}
		model := req.EmbeddingModel
		if model == "" {
			model = defaults.EmbeddingModel
		}
		if apiKey == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"openai_api_key is required when no key is configured", nil)
			return
		}

		// Order matters: the index mapping references the inference endpoint.
		if err := store.ConfigureInference(r.Context(), apiKey, model); err != nil {
			writeStoreError(w, err)
			return
		}
		if err := store.EnsureIndex(r.Context()); err != nil {
			writeStoreError(w, err)
			return
		}
		if err := store.EnsurePipeline(r.Context()); err != nil {
			writeStoreError(w, err)
			return
		}

		response.JSON(w, map[string]string{
			"status":          "ready",
			"embedding_model": model,
		})
	}
}
