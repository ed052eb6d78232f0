package elastic

import (
	"context"
	"fmt"
	"net/http"
)

// Identifiers for the cluster-side inference plumbing. Fixed: the index
// mapping references the inference endpoint by id.
const (
	InferenceID = "openai-sre-embeddings"
	PipelineID  = "slice-seeding-pipeline"
)

// DefaultIndex is the slice index name used when none is configured.
const DefaultIndex = "sentinel-slices"

// indexMappings is the fixed mapping for the slice index: semantic_text over
// state_summary for server-side embeddings, a BBQ-quantized dense vector for
// raw embedding storage, keyword domain for exact filtering.
var indexMappings = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"state_summary": map[string]any{
				"type":         "semantic_text",
				"inference_id": InferenceID,
			},
			"state_vector": map[string]any{
				"type":          "dense_vector",
				"dims":          1536,
				"index":         true,
				"similarity":    "cosine",
				"index_options": map[string]any{"type": "bbq_hnsw"},
			},
			"domain":      map[string]any{"type": "keyword"},
			"resolution":  map[string]any{"type": "text"},
			"metadata":    map[string]any{"type": "object", "dynamic": true},
			"ingested_at": map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the slice index with its fixed mapping if it does not
// already exist.
func (c *HTTPClient) EnsureIndex(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodHead, "/"+c.index, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return statusError(resp)
	}

	createResp, err := c.do(ctx, http.MethodPut, "/"+c.index, indexMappings)
	if err != nil {
		return err
	}
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: creating index %q failed with status %d", ErrQueryFailed, c.index, createResp.StatusCode)
	}
	return nil
}

// ConfigureInference registers the OpenAI text-embedding inference endpoint
// the semantic_text mapping depends on. Already-configured endpoints are left
// untouched.
func (c *HTTPClient) ConfigureInference(ctx context.Context, apiKey, modelID string) error {
	path := "/_inference/text_embedding/" + InferenceID

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"service": "openai",
		"service_settings": map[string]any{
			"api_key":  apiKey,
			"model_id": modelID,
		},
	}
	putResp, err := c.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	defer putResp.Body.Close()

	if putResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: configuring inference endpoint failed with status %d", ErrQueryFailed, putResp.StatusCode)
	}
	return nil
}

// EnsurePipeline installs the ingest pipeline that embeds raw slices and
// stamps ingestion time. PUT overwrites, so repeated setup is safe.
func (c *HTTPClient) EnsurePipeline(ctx context.Context) error {
	body := map[string]any{
		"description": "Seeds real-time slices with embeddings via OpenAI",
		"processors": []any{
			map[string]any{
				"inference": map[string]any{
					"model_id": InferenceID,
					"input_output": []any{
						map[string]any{"input_field": "raw_logs", "output_field": "state_vector"},
					},
				},
			},
			map[string]any{
				"set": map[string]any{
					"field": "ingested_at",
					"value": "{{{_ingest.timestamp}}}",
				},
			},
		},
	}

	resp, err := c.do(ctx, http.MethodPut, "/_ingest/pipeline/"+PipelineID, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: installing ingest pipeline failed with status %d", ErrQueryFailed, resp.StatusCode)
	}
	return nil
}
