// Package pipeline orchestrates the three-stage analysis flow: retrieve
// historical matches, synthesize the shared root-cause pattern, then generate
// a remediation runbook grounded in the retrieved resolutions.
//
// The stages run strictly in sequence because each consumes the previous
// stage's output. State threads through as an immutable value: every stage
// returns a new copy extended with its own output and timeline record, so a
// stage can be tested in isolation against a fixed input. A failed stage
// aborts the run with a typed error naming the stage; no partial runbook is
// ever returned.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentinelstack/sentinel-slice/internal/metrics"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

const (
	// DefaultAnalysisMaxTokens bounds the root-cause pattern completion.
	DefaultAnalysisMaxTokens = 300
	// DefaultRunbookMaxTokens bounds the runbook completion.
	DefaultRunbookMaxTokens = 800

	// MinTopK and MaxTopK bound how many fused matches one run may request.
	MinTopK = 1
	MaxTopK = 10
)

// Retriever is the fused-search capability the pipeline consumes.
type Retriever interface {
	Fuse(ctx context.Context, query, domain string, topK int) ([]models.RankedHit, error)
}

// RunRequest carries the caller's description of the incident under analysis.
type RunRequest struct {
	Symptoms string `json:"symptoms"`
	Domain   string `json:"domain"`
	TopK     int    `json:"top_k"`
}

func (r RunRequest) validate() error {
	if strings.TrimSpace(r.Symptoms) == "" {
		return &ValidationError{Field: "symptoms", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Domain) == "" {
		return &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		return &ValidationError{
			Field:  "top_k",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinTopK, MaxTopK, r.TopK),
		}
	}
	return nil
}

// Pipeline wires the retriever and completion provider into the fixed
// three-stage flow. Safe for concurrent use; each run owns its own state.
type Pipeline struct {
	retriever Retriever
	provider  models.CompletionProvider
	logger    *slog.Logger

	analysisMaxTokens int
	runbookMaxTokens  int
}

type Option func(*Pipeline)

// WithAnalysisMaxTokens overrides the output budget of the analysis stage.
func WithAnalysisMaxTokens(n int) Option {
	return func(p *Pipeline) {
		p.analysisMaxTokens = n
	}
}

// WithRunbookMaxTokens overrides the output budget of the action stage.
func WithRunbookMaxTokens(n int) Option {
	return func(p *Pipeline) {
		p.runbookMaxTokens = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func New(retriever Retriever, provider models.CompletionProvider, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:         retriever,
		provider:          provider,
		analysisMaxTokens: DefaultAnalysisMaxTokens,
		runbookMaxTokens:  DefaultRunbookMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// runState is the value threaded through the stages.
type runState struct {
	symptoms string
	domain   string
	topK     int

	hits     []models.RankedHit
	context  string
	pattern  string
	runbook  string
	timeline []models.StageRecord
}

// withRecord returns a copy of the state with rec appended to its timeline.
func (s runState) withRecord(rec models.StageRecord) runState {
	timeline := make([]models.StageRecord, len(s.timeline), len(s.timeline)+1)
	copy(timeline, s.timeline)
	s.timeline = append(timeline, rec)
	return s
}

// Run executes one analysis end to end and returns the assembled report.
// An empty retrieval short-circuits to a fixed escalation report without
// spending a single completion call.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*models.AnalysisReport, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	state := runState{symptoms: req.Symptoms, domain: req.Domain, topK: req.TopK}

	state, err := p.retrieve(ctx, state)
	if err != nil {
		return nil, err
	}
	if len(state.hits) == 0 {
		p.logger.Info("no historical matches, short-circuiting",
			"domain", state.domain,
			"top_k", state.topK)
		return noMatchReport(state), nil
	}
	state.context = contextBlock(state.hits)

	if state, err = p.analyze(ctx, state); err != nil {
		return nil, err
	}
	if state, err = p.act(ctx, state); err != nil {
		return nil, err
	}

	rep := report(state)
	p.logger.Info("analysis run completed",
		"domain", rep.Domain,
		"matches", len(rep.Matches),
		"total_s", rep.TotalTimeS)
	return rep, nil
}

func (p *Pipeline) retrieve(ctx context.Context, state runState) (runState, error) {
	start := time.Now()
	hits, err := p.retriever.Fuse(ctx, state.symptoms, state.domain, state.topK)
	if err != nil {
		return state, &RetrievalError{Err: err}
	}
	duration := roundSeconds(time.Since(start))
	metrics.ObserveStage(models.StageRetrieval, duration)
	p.logger.Debug("retrieval stage done", "hits", len(hits), "duration_s", duration)

	state.hits = hits
	return state.withRecord(models.StageRecord{
		Stage:     models.StageRetrieval,
		DurationS: duration,
		Detail:    fmt.Sprintf("Found %d matches via RRF (scores: %s)", len(hits), formatScores(hits)),
	}), nil
}

func (p *Pipeline) analyze(ctx context.Context, state runState) (runState, error) {
	start := time.Now()
	completion, err := p.provider.Complete(ctx, models.CompletionRequest{
		Prompt:    analysisPrompt(state.symptoms, state.context),
		MaxTokens: p.analysisMaxTokens,
	})
	if err != nil {
		return state, &CompletionError{StageName: models.StageAnalysis, Err: err}
	}
	duration := roundSeconds(time.Since(start))
	metrics.ObserveStage(models.StageAnalysis, duration)
	metrics.ObserveCompletionTokens(models.StageAnalysis, completion.PromptTokens, completion.CompletionTokens)
	p.logger.Debug("analysis stage done", "duration_s", duration, "model", completion.Model)

	state.pattern = strings.TrimSpace(completion.Text)
	return state.withRecord(models.StageRecord{
		Stage:     models.StageAnalysis,
		DurationS: duration,
		Detail:    "Root cause pattern synthesized from historical matches.",
	}), nil
}

func (p *Pipeline) act(ctx context.Context, state runState) (runState, error) {
	start := time.Now()
	completion, err := p.provider.Complete(ctx, models.CompletionRequest{
		Prompt:    actionPrompt(state.symptoms, state.pattern, state.context),
		MaxTokens: p.runbookMaxTokens,
	})
	if err != nil {
		return state, &CompletionError{StageName: models.StageAction, Err: err}
	}
	duration := roundSeconds(time.Since(start))
	metrics.ObserveStage(models.StageAction, duration)
	metrics.ObserveCompletionTokens(models.StageAction, completion.PromptTokens, completion.CompletionTokens)
	p.logger.Debug("action stage done", "duration_s", duration, "model", completion.Model)

	runbook := strings.TrimSpace(completion.Text)
	state.runbook = runbook
	return state.withRecord(models.StageRecord{
		Stage:     models.StageAction,
		DurationS: duration,
		Detail:    fmt.Sprintf("Generated %d line runbook.", countLines(runbook)),
	}), nil
}

func report(state runState) *models.AnalysisReport {
	matches := make([]models.Match, 0, len(state.hits))
	for _, h := range state.hits {
		matches = append(matches, models.Match{
			Rank:         h.Rank,
			Score:        roundScore(h.Score),
			IncidentID:   h.Slice.IncidentID(),
			StateSummary: h.Slice.StateSummary,
			Resolution:   h.Slice.Resolution,
			Domain:       h.Slice.Domain,
			Severity:     h.Slice.Severity(),
		})
	}
	return &models.AnalysisReport{
		Runbook:    state.runbook,
		Pattern:    state.pattern,
		Matches:    matches,
		Timeline:   state.timeline,
		TotalTimeS: totalSeconds(state.timeline),
		Domain:     state.domain,
	}
}

func noMatchReport(state runState) *models.AnalysisReport {
	return &models.AnalysisReport{
		Runbook:    noMatchRunbook,
		Pattern:    noMatchPattern,
		Matches:    []models.Match{},
		Timeline:   state.timeline,
		TotalTimeS: totalSeconds(state.timeline),
		Domain:     state.domain,
	}
}

func totalSeconds(timeline []models.StageRecord) float64 {
	var total float64
	for _, rec := range timeline {
		total += rec.DurationS
	}
	return round2(total)
}
