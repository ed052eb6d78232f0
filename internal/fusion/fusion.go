// Package fusion merges lexical and semantic search rankings into a single
// ordered result list using Reciprocal Rank Fusion (RRF).
//
// Both source queries run concurrently against the document store. Each
// candidate's fused score is the sum of 1/(rankConstant+rank) over every
// source list it appears in, so documents ranked highly by both retrieval
// modes float to the top without any score normalisation between the two
// systems.
package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sentinelstack/sentinel-slice/internal/elastic"
	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

const (
	// DefaultRankConstant dampens the advantage of top-ranked documents.
	// 60 is the value from the original RRF paper and works well in practice.
	DefaultRankConstant = 60

	// DefaultWindowMultiplier controls how many candidates each source query
	// returns relative to the requested result size. Fetching a deeper window
	// lets a document ranked poorly by one system but well by the other still
	// make the fused cut.
	DefaultWindowMultiplier = 3
)

// SearchStore is the slice of the document store the engine depends on.
type SearchStore interface {
	Search(ctx context.Context, req elastic.SearchRequest) ([]elastic.Hit, error)
}

// Engine fuses lexical and semantic rankings for a shared query string.
type Engine struct {
	store  SearchStore
	logger *slog.Logger

	rankConstant     int
	windowMultiplier int
}

type Option func(*Engine)

// WithRankConstant overrides the RRF rank constant.
func WithRankConstant(k int) Option {
	return func(e *Engine) {
		e.rankConstant = k
	}
}

// WithWindowMultiplier overrides the candidate window multiplier.
func WithWindowMultiplier(m int) Option {
	return func(e *Engine) {
		e.windowMultiplier = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(store SearchStore, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		rankConstant:     DefaultRankConstant,
		windowMultiplier: DefaultWindowMultiplier,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Fuse runs the lexical and semantic queries concurrently and returns the
// top topK fused results. Both queries request topK multiplied by the window
// multiplier candidates. An empty result means no document matched either
// query; a non-nil error means at least one source query failed, in which
// case no partial ranking is returned.
func (e *Engine) Fuse(ctx context.Context, query, domain string, topK int) ([]models.RankedHit, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	window := topK * e.windowMultiplier

	var lexical, semantic []elastic.Hit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.store.Search(gctx, elastic.SearchRequest{
			Query:  query,
			Mode:   elastic.ModeLexical,
			Domain: domain,
			Size:   window,
		})
		if err != nil {
			return fmt.Errorf("lexical query: %w", err)
		}
		lexical = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.store.Search(gctx, elastic.SearchRequest{
			Query:  query,
			Mode:   elastic.ModeSemantic,
			Domain: domain,
			Size:   window,
		})
		if err != nil {
			return fmt.Errorf("semantic query: %w", err)
		}
		semantic = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := e.fuse(lexical, semantic, topK)
	e.logger.Debug("fused rankings",
		"lexical_hits", len(lexical),
		"semantic_hits", len(semantic),
		"fused", len(fused),
		"window", window)
	return fused, nil
}

// candidate tracks a document's per-source ranks during fusion. A rank of
// zero means the document was absent from that source list.
type candidate struct {
	hit          elastic.Hit
	score        float64
	lexicalRank  int
	semanticRank int
}

func (e *Engine) fuse(lexical, semantic []elastic.Hit, topK int) []models.RankedHit {
	byID := make(map[string]*candidate, len(lexical)+len(semantic))
	for i, h := range lexical {
		if _, ok := byID[h.ID]; ok {
			continue
		}
		rank := i + 1
		byID[h.ID] = &candidate{
			hit:         h,
			score:       1 / float64(e.rankConstant+rank),
			lexicalRank: rank,
		}
	}
	for i, h := range semantic {
		rank := i + 1
		c, ok := byID[h.ID]
		if !ok {
			c = &candidate{hit: h}
			byID[h.ID] = c
		} else if c.semanticRank != 0 {
			continue
		}
		c.semanticRank = rank
		c.score += 1 / float64(e.rankConstant+rank)
	}

	ordered := make([]*candidate, 0, len(byID))
	for _, c := range byID {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.lexicalRank != b.lexicalRank {
			return rankBefore(a.lexicalRank, b.lexicalRank)
		}
		if a.semanticRank != b.semanticRank {
			return rankBefore(a.semanticRank, b.semanticRank)
		}
		return a.hit.ID < b.hit.ID
	})

	if len(ordered) > topK {
		ordered = ordered[:topK]
	}

	hits := make([]models.RankedHit, 0, len(ordered))
	for i, c := range ordered {
		hits = append(hits, models.RankedHit{
			ID:    c.hit.ID,
			Score: c.score,
			Rank:  i + 1,
			Slice: c.hit.Slice,
		})
	}
	return hits
}

// rankBefore orders present ranks ascending and places absent ranks last.
func rankBefore(a, b int) bool {
	if a == 0 {
		return false
	}
	if b == 0 {
		return true
	}
	return a < b
}
