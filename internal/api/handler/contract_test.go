package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	aimock "github.com/sentinelstack/sentinel-slice/internal/ai/mock"
	"github.com/sentinelstack/sentinel-slice/internal/api"
	"github.com/sentinelstack/sentinel-slice/internal/api/handler"
	"github.com/sentinelstack/sentinel-slice/internal/elastic"
	"github.com/sentinelstack/sentinel-slice/internal/fusion"
	"github.com/sentinelstack/sentinel-slice/internal/pipeline"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock document store ─────────────────────────────────────────────────────

// mockBank implements elastic.Client in memory. Search serves both ranking
// modes from the stored slices so the fusion engine and pipeline run for real
// on top of it.
type mockBank struct {
	slices    map[string]models.Slice
	order     []string
	searchErr error
	setupErr  error
	ready     bool
}

func newMockBank() *mockBank {
	return &mockBank{slices: make(map[string]models.Slice)}
}

func (b *mockBank) add(s models.Slice) {
	if _, exists := b.slices[s.ID]; !exists {
		b.order = append(b.order, s.ID)
	}
	b.slices[s.ID] = s
}

func (b *mockBank) Search(_ context.Context, req elastic.SearchRequest) ([]elastic.Hit, error) {
	if b.searchErr != nil {
		return nil, b.searchErr
	}
	ids := make([]string, 0, len(b.order))
	for _, id := range b.order {
		s := b.slices[id]
		if req.Domain != "" && s.Domain != req.Domain {
			continue
		}
		ids = append(ids, id)
	}
	// Semantic ranking disagrees with lexical by reversing the order, which
	// gives the fusion engine two genuinely different rankings to combine.
	if req.Mode == elastic.ModeSemantic {
		sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	} else {
		sort.Strings(ids)
	}
	if req.Size > 0 && len(ids) > req.Size {
		ids = ids[:req.Size]
	}
	hits := make([]elastic.Hit, 0, len(ids))
	for i, id := range ids {
		hits = append(hits, elastic.Hit{
			ID:    id,
			Score: float64(len(ids) - i),
			Slice: b.slices[id],
		})
	}
	return hits, nil
}

func (b *mockBank) Index(_ context.Context, s models.Slice) error {
	b.add(s)
	return nil
}

func (b *mockBank) Get(_ context.Context, id string) (*models.Slice, error) {
	s, ok := b.slices[id]
	if !ok {
		return nil, elastic.ErrNotFound
	}
	return &s, nil
}

func (b *mockBank) Delete(_ context.Context, id string) error {
	if _, ok := b.slices[id]; !ok {
		return elastic.ErrNotFound
	}
	delete(b.slices, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func (b *mockBank) ListRecent(_ context.Context, domain string, limit int) ([]models.Slice, error) {
	var out []models.Slice
	for i := len(b.order) - 1; i >= 0 && len(out) < limit; i-- {
		s := b.slices[b.order[i]]
		if domain != "" && s.Domain != domain {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *mockBank) Stats(_ context.Context) (*elastic.Stats, error) {
	counts := make(map[string]int)
	for _, id := range b.order {
		counts[b.slices[id].Domain]++
	}
	stats := &elastic.Stats{TotalSlices: len(b.order)}
	domains := make([]string, 0, len(counts))
	for d := range counts {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		stats.ByDomain = append(stats.ByDomain, elastic.DomainCount{Domain: d, Count: counts[d]})
	}
	return stats, nil
}

func (b *mockBank) Ping(_ context.Context) error { return nil }

func (b *mockBank) EnsureIndex(_ context.Context) error {
	if b.setupErr != nil {
		return b.setupErr
	}
	b.ready = true
	return nil
}

func (b *mockBank) ConfigureInference(_ context.Context, _, _ string) error { return b.setupErr }
func (b *mockBank) EnsurePipeline(_ context.Context) error                  { return b.setupErr }

var _ elastic.Client = (*mockBank)(nil)

// ─── test fixtures ───────────────────────────────────────────────────────────

func fixtureSlices() []models.Slice {
	return []models.Slice{
		{
			ID:           "slice-a",
			Domain:       "kubernetes",
			StateSummary: "Pods crash looping after config change, readiness probes failing",
			Resolution:   "Rolled back the ConfigMap and restarted the deployment",
			Metadata:     map[string]any{"incident_id": "K8S-INC-001", "severity": "critical"},
			IngestedAt:   time.Now().UTC(),
		},
		{
			ID:           "slice-b",
			Domain:       "kubernetes",
			StateSummary: "Worker nodes under disk pressure, images evicted",
			Resolution:   "Pruned unused images and raised the eviction threshold",
			Metadata:     map[string]any{"incident_id": "K8S-INC-009", "severity": "high"},
			IngestedAt:   time.Now().UTC(),
		},
		{
			ID:           "slice-c",
			Domain:       "ecommerce",
			StateSummary: "Checkout latency spiking during flash sale",
			Resolution:   "Scaled the checkout service and enabled request coalescing",
			Metadata:     map[string]any{"incident_id": "ECO-INC-007", "severity": "high"},
			IngestedAt:   time.Now().UTC(),
		},
	}
}

// ─── test harness ────────────────────────────────────────────────────────────

type testServer struct {
	server *httptest.Server
	bank   *mockBank
}

func newTestServer(t *testing.T, provider models.CompletionProvider) *testServer {
	t.Helper()

	bank := newMockBank()
	for _, s := range fixtureSlices() {
		bank.add(s)
	}

	engine := fusion.NewEngine(bank)
	pipe := pipeline.New(engine, provider)

	deps := api.Dependencies{
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"status":"ok"}}`))
		},
		SetupHandler: handler.NewSetupHandler(bank, handler.SetupDefaults{
			OpenAIAPIKey:   "sk-test",
			EmbeddingModel: "text-embedding-3-small",
		}),
		IngestHandler:      handler.NewIngestHandler(bank),
		SeedHandler:        handler.NewSeedHandler(bank, fixtureSlices()),
		ListSlicesHandler:  handler.NewListSlicesHandler(bank),
		DeleteSliceHandler: handler.NewDeleteSliceHandler(bank),
		SearchHandler:      handler.NewSearchHandler(engine),
		AnalyzeHandler:     handler.NewAnalyzeHandler(pipe, nil),
		StatsHandler:       handler.NewStatsHandler(bank),
	}

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)

	return &testServer{server: srv, bank: bank}
}

func (ts *testServer) request(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, ts.server.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(ts.request(method, path, body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func parseBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// ─── GET /api/v1/health ──────────────────────────────────────────────────────

func TestHealth_200(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "GET", "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ─── POST /api/v1/setup ──────────────────────────────────────────────────────

func TestSetup_200_Idempotent(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/setup", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "ready", data["status"])
	assert.True(t, ts.bank.ready)

	again := ts.do(t, "POST", "/api/v1/setup", map[string]any{})
	assert.Equal(t, http.StatusOK, again.StatusCode)
}

func TestSetup_HonorsRequestEmbeddingModel(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/setup", map[string]any{"embedding_model": "text-embedding-3-large"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "text-embedding-3-large", data["embedding_model"])
}

func TestSetup_502_StoreDown(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())
	ts.bank.setupErr = elastic.ErrUnavailable

	resp := ts.do(t, "POST", "/api/v1/setup", nil)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "STORE_UNAVAILABLE", errObj["code"])
}

// ─── POST /api/v1/slices ─────────────────────────────────────────────────────

func TestIngest_201_ReturnsID(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/slices", map[string]any{
		"domain":        "ml-training",
		"state_summary": "Training loss diverging after data refresh",
		"resolution":    "Reverted to previous dataset snapshot and re-ran validation",
		"metadata":      map[string]any{"incident_id": "ML-INC-003", "severity": "medium"},
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
}

func TestIngest_400_MissingResolution(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/slices", map[string]any{
		"domain":        "ml-training",
		"state_summary": "Training loss diverging",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
}

// ─── POST /api/v1/slices/seed ────────────────────────────────────────────────

func TestSeed_200_CountReported(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/slices/seed", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["seeded"])
}

// ─── GET /api/v1/slices ──────────────────────────────────────────────────────

func TestListSlices_200_WithMeta(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "GET", "/api/v1/slices?domain=kubernetes&limit=10", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := parseBody(t, resp)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, "kubernetes", meta["domain"])
	assert.Equal(t, float64(10), meta["limit"])
	assert.Equal(t, float64(2), meta["count"])
}

// ─── DELETE /api/v1/slices/{sliceID} ─────────────────────────────────────────

func TestDeleteSlice_204(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "DELETE", "/api/v1/slices/slice-a", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err := ts.bank.Get(context.Background(), "slice-a")
	assert.ErrorIs(t, err, elastic.ErrNotFound)
}

func TestDeleteSlice_404_Missing(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "DELETE", "/api/v1/slices/no-such-slice", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}

// ─── POST /api/v1/search ─────────────────────────────────────────────────────

func TestSearch_200_FusedResults(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/search", map[string]any{
		"query": "crash looping pods",
		"top_k": 3,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := parseBody(t, resp)
	hits := body["data"].([]any)
	require.Len(t, hits, 3)

	first := hits[0].(map[string]any)
	assert.Equal(t, float64(1), first["rank"])
	assert.NotEmpty(t, first["state_summary"])
	assert.Greater(t, first["score"].(float64), 0.0)

	// Fused scores are non-increasing down the ranking.
	prev := first["score"].(float64)
	for _, h := range hits[1:] {
		score := h.(map[string]any)["score"].(float64)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}

func TestSearch_200_DomainFiltered(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/search", map[string]any{
		"query":  "latency",
		"domain": "ecommerce",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	hits := parseBody(t, resp)["data"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "ecommerce", hits[0].(map[string]any)["domain"])
}

func TestSearch_400_EmptyQuery(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/search", map[string]any{"query": ""})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
}

func TestSearch_502_StoreDown(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())
	ts.bank.searchErr = elastic.ErrUnavailable

	resp := ts.do(t, "POST", "/api/v1/search", map[string]any{"query": "anything"})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "STORE_UNAVAILABLE", errObj["code"])
}

// ─── POST /api/v1/analyze ────────────────────────────────────────────────────

func TestAnalyze_200_FullReport(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/analyze", map[string]any{
		"symptoms": "pods crash looping after config change",
		"domain":   "kubernetes",
		"top_k":    2,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)

	assert.NotEmpty(t, data["runbook"])
	assert.NotEmpty(t, data["pattern"])
	assert.Equal(t, "kubernetes", data["domain"])

	matches := data["matches"].([]any)
	require.Len(t, matches, 2)
	first := matches[0].(map[string]any)
	assert.Contains(t, []any{"K8S-INC-001", "K8S-INC-009"}, first["incident_id"])

	timeline := data["timeline"].([]any)
	require.Len(t, timeline, 3)
	assert.Equal(t, "retrieval", timeline[0].(map[string]any)["stage"])
	assert.Equal(t, "analysis", timeline[1].(map[string]any)["stage"])
	assert.Equal(t, "action", timeline[2].(map[string]any)["stage"])

	assert.GreaterOrEqual(t, data["total_time_s"].(float64), 0.0)
}

func TestAnalyze_200_NoMatchShortCircuit(t *testing.T) {
	completions := 0
	provider := &aimock.MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (*models.Completion, error) {
			completions++
			return &models.Completion{Text: "should never be produced"}, nil
		},
	}
	ts := newTestServer(t, provider)

	resp := ts.do(t, "POST", "/api/v1/analyze", map[string]any{
		"symptoms": "novel failure with no precedent",
		"domain":   "5g", // no fixtures in this domain
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)

	assert.Equal(t, "No pattern detected.", data["pattern"])
	assert.Equal(t, "No historical matches found. This may be a novel incident — escalate to on-call engineer.", data["runbook"])
	assert.Empty(t, data["matches"])
	require.Len(t, data["timeline"].([]any), 1)
	assert.Zero(t, completions, "no completion calls on an empty retrieval")
}

func TestAnalyze_400_MissingSymptoms(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/analyze", map[string]any{"domain": "kubernetes"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, "symptoms", details["field"])
}

func TestAnalyze_502_ProviderDown_NamesStage(t *testing.T) {
	ts := newTestServer(t, aimock.NewFailingProvider(assert.AnError))

	resp := ts.do(t, "POST", "/api/v1/analyze", map[string]any{
		"symptoms": "pods crash looping",
		"domain":   "kubernetes",
	})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errObj := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "AI_PROVIDER_UNAVAILABLE", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, "analysis", details["stage"], "the first completion stage should be the one reported")
}

// ─── GET /api/v1/stats ───────────────────────────────────────────────────────

func TestStats_200_ByDomain(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "GET", "/api/v1/stats", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total_slices"])

	byDomain := data["by_domain"].([]any)
	require.Len(t, byDomain, 2)
}

// ─── Response format contract ────────────────────────────────────────────────

func TestResponseFormat_SuccessEnvelope(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "GET", "/api/v1/stats", nil)

	body := parseBody(t, resp)
	_, hasData := body["data"]
	_, hasError := body["error"]
	assert.True(t, hasData, "success responses carry a data envelope")
	assert.False(t, hasError)
}

func TestResponseFormat_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "POST", "/api/v1/search", map[string]any{"query": ""})

	body := parseBody(t, resp)
	errObj, hasError := body["error"].(map[string]any)
	require.True(t, hasError, "error responses carry an error envelope")
	assert.NotEmpty(t, errObj["code"])
	assert.NotEmpty(t, errObj["message"])
}

func TestResponseFormat_RequestIDHeader(t *testing.T) {
	ts := newTestServer(t, aimock.NewMockProvider())

	resp := ts.do(t, "GET", "/api/v1/stats", nil)

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
