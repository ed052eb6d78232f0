package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sentinelstack/sentinel-slice/pkg/esquery"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// Sentinel errors for Elasticsearch client failures.
var (
	ErrUnavailable = errors.New("elasticsearch unreachable")
	ErrQueryFailed = errors.New("elasticsearch query failed")
	ErrTimeout     = errors.New("elasticsearch request timeout")
	ErrNotFound    = errors.New("slice not found")
)

// Mode selects which ranking a search request uses.
type Mode string

const (
	// ModeLexical ranks by term-match relevance over state_summary.
	ModeLexical Mode = "lexical"
	// ModeSemantic ranks by embedding similarity over state_summary.
	ModeSemantic Mode = "semantic"
)

// Client is the interface for the slice document store.
type Client interface {
	Search(ctx context.Context, req SearchRequest) ([]Hit, error)
	Index(ctx context.Context, s models.Slice) error
	Get(ctx context.Context, id string) (*models.Slice, error)
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context, domain string, limit int) ([]models.Slice, error)
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
	ConfigureInference(ctx context.Context, apiKey, modelID string) error
	EnsurePipeline(ctx context.Context) error
}

// SearchRequest defines parameters for a single-mode ranking query.
type SearchRequest struct {
	Query  string
	Mode   Mode
	Domain string // optional hard filter
	Size   int
}

// Hit is one raw scored result from a single ranking.
type Hit struct {
	ID    string
	Score float64
	Slice models.Slice
}

// Stats summarizes the memory bank contents.
type Stats struct {
	TotalSlices int           `json:"total_slices"`
	ByDomain    []DomainCount `json:"by_domain"`
}

// DomainCount is the number of slices stored for one domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// HTTPClient implements Client using the Elasticsearch REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	index   string
	builder esquery.Builder
	client  *http.Client
}

// NewHTTPClient creates a new Elasticsearch HTTP client for one index.
func NewHTTPClient(baseURL, apiKey, index string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		index:   index,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	params := esquery.SearchParams{Query: req.Query, Domain: req.Domain, Size: req.Size}

	var body map[string]any
	switch req.Mode {
	case ModeLexical:
		body = c.builder.Lexical(params)
	case ModeSemantic:
		body = c.builder.Semantic(params)
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", ErrQueryFailed, req.Mode)
	}

	resp, err := c.do(ctx, http.MethodPost, "/"+c.index+"/_search", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var searchResp esSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return parseHits(searchResp.Hits.Hits), nil
}

func (c *HTTPClient) Index(ctx context.Context, s models.Slice) error {
	doc := sliceSource{
		Domain:       s.Domain,
		StateSummary: s.StateSummary,
		Resolution:   s.Resolution,
		Metadata:     s.Metadata,
		IngestedAt:   s.IngestedAt,
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}

	resp, err := c.do(ctx, http.MethodPut, "/"+c.index+"/_doc/"+url.PathEscape(s.ID), doc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}
	return nil
}

func (c *HTTPClient) Get(ctx context.Context, id string) (*models.Slice, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+c.index+"/_doc/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var docResp esDocResponse
	if err := json.NewDecoder(resp.Body).Decode(&docResp); err != nil {
		return nil, fmt.Errorf("decoding document response: %w", err)
	}

	s := docResp.Source.toSlice(docResp.ID)
	return &s, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/"+c.index+"/_doc/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *HTTPClient) ListRecent(ctx context.Context, domain string, limit int) ([]models.Slice, error) {
	resp, err := c.do(ctx, http.MethodPost, "/"+c.index+"/_search", c.builder.ListRecent(domain, limit))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var searchResp esSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}

	slices := make([]models.Slice, 0, len(searchResp.Hits.Hits))
	for _, h := range searchResp.Hits.Hits {
		slices = append(slices, h.Source.toSlice(h.ID))
	}
	return slices, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (*Stats, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+c.index+"/_count", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var countResp esCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return nil, fmt.Errorf("decoding count response: %w", err)
	}

	aggResp, err := c.do(ctx, http.MethodPost, "/"+c.index+"/_search", c.builder.CountByDomain(20))
	if err != nil {
		return nil, err
	}
	defer aggResp.Body.Close()

	if aggResp.StatusCode != http.StatusOK {
		return nil, statusError(aggResp)
	}

	var searchResp esSearchResponse
	if err := json.NewDecoder(aggResp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding aggregation response: %w", err)
	}

	stats := &Stats{TotalSlices: countResp.Count, ByDomain: []DomainCount{}}
	for _, b := range searchResp.Aggregations.ByDomain.Buckets {
		stats.ByDomain = append(stats.ByDomain, DomainCount{Domain: b.Key, Count: b.DocCount})
	}
	return stats, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: cluster not ready (status %d)", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// do builds, authorizes, and executes one request against the cluster.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	return resp, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func statusError(resp *http.Response) error {
	return fmt.Errorf("%w: status %d", ErrQueryFailed, resp.StatusCode)
}

// parseHits converts raw search hits, preserving store order.
func parseHits(hits []esHit) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, Hit{
			ID:    h.ID,
			Score: h.Score,
			Slice: h.Source.toSlice(h.ID),
		})
	}
	return out
}

// --- Elasticsearch response types ---

type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		ByDomain struct {
			Buckets []esBucket `json:"buckets"`
		} `json:"by_domain"`
	} `json:"aggregations"`
}

type esHit struct {
	ID     string      `json:"_id"`
	Score  float64     `json:"_score"`
	Source sliceSource `json:"_source"`
}

type esDocResponse struct {
	ID     string      `json:"_id"`
	Found  bool        `json:"found"`
	Source sliceSource `json:"_source"`
}

type esCountResponse struct {
	Count int `json:"count"`
}

type esBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

// sliceSource is the stored document shape.
type sliceSource struct {
	Domain       string         `json:"domain"`
	StateSummary string         `json:"state_summary"`
	Resolution   string         `json:"resolution"`
	Metadata     map[string]any `json:"metadata"`
	IngestedAt   time.Time      `json:"ingested_at"`
}

func (s sliceSource) toSlice(id string) models.Slice {
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return models.Slice{
		ID:           id,
		Domain:       s.Domain,
		StateSummary: s.StateSummary,
		Resolution:   s.Resolution,
		Metadata:     metadata,
		IngestedAt:   s.IngestedAt,
	}
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
