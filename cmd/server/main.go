// Package main is the entrypoint for the SentinelSlice API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sentinelstack/sentinel-slice/internal/ai"
	"github.com/sentinelstack/sentinel-slice/internal/api"
	"github.com/sentinelstack/sentinel-slice/internal/api/handler"
	mw "github.com/sentinelstack/sentinel-slice/internal/api/middleware"
	"github.com/sentinelstack/sentinel-slice/internal/api/response"
	"github.com/sentinelstack/sentinel-slice/internal/cache"
	"github.com/sentinelstack/sentinel-slice/internal/config"
	"github.com/sentinelstack/sentinel-slice/internal/elastic"
	"github.com/sentinelstack/sentinel-slice/internal/fusion"
	"github.com/sentinelstack/sentinel-slice/internal/metrics"
	"github.com/sentinelstack/sentinel-slice/internal/pipeline"
	"github.com/sentinelstack/sentinel-slice/internal/seed"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"env", cfg.Server.Env,
		"index", cfg.Elastic.Index)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Document store client. The store may still be booting; health
	// reports it degraded until it answers, and /setup provisions it.
	es := elastic.NewHTTPClient(cfg.Elastic.URL, cfg.Elastic.APIKey, cfg.Elastic.Index, cfg.Elastic.Timeout)
	if err := es.Ping(ctx); err != nil {
		slog.Warn("elasticsearch not reachable yet", "url", cfg.Elastic.URL, "error", err)
	} else {
		slog.Info("elasticsearch connected", "url", cfg.Elastic.URL)
	}

	// 3. Optional Redis cache; without it the rate limiter is skipped
	var store cache.Cache = cache.NoopCache{}
	cacheEnabled := false
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		store = redisCache
		cacheEnabled = true
		slog.Info("redis connected")
	} else {
		slog.Info("redis not configured, rate limiting disabled")
	}

	// 4. Completion provider
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", provider.Name())

	// 5. Metrics
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 6. Retrieval engine and analysis pipeline
	engine := fusion.NewEngine(es,
		fusion.WithRankConstant(cfg.Pipeline.RankConstant),
		fusion.WithWindowMultiplier(cfg.Pipeline.WindowMultiplier))
	pipe := pipeline.New(engine, provider,
		pipeline.WithAnalysisMaxTokens(cfg.Pipeline.AnalysisMaxTokens),
		pipeline.WithRunbookMaxTokens(cfg.Pipeline.RunbookMaxTokens))

	// 7. Seed corpus: built-in demo slices plus an optional YAML file
	corpus := seed.DemoSlices()
	if cfg.Seed.Path != "" {
		extra, err := seed.LoadFile(cfg.Seed.Path)
		if err != nil {
			return fmt.Errorf("load seed corpus: %w", err)
		}
		corpus = append(corpus, extra...)
		slog.Info("seed corpus loaded", "path", cfg.Seed.Path, "extra_slices", len(extra))
	}

	// 8. Build router with dependencies
	latencies := metrics.NewLatencyTracker(1024)

	deps := api.Dependencies{
		Metrics: promhttp.Handler(),

		HealthHandler: healthHandler(es, store, cacheEnabled),
		SetupHandler: handler.NewSetupHandler(es, handler.SetupDefaults{
			OpenAIAPIKey:   cfg.AI.OpenAI.APIKey,
			EmbeddingModel: cfg.AI.OpenAI.EmbeddingModel,
		}),
		IngestHandler:      handler.NewIngestHandler(es),
		SeedHandler:        handler.NewSeedHandler(es, corpus),
		ListSlicesHandler:  handler.NewListSlicesHandler(es),
		DeleteSliceHandler: handler.NewDeleteSliceHandler(es),
		SearchHandler:      handler.NewSearchHandler(engine),
		AnalyzeHandler:     handler.NewAnalyzeHandler(pipe, latencies),
		StatsHandler:       handler.NewStatsHandler(es),
	}
	if cacheEnabled {
		deps.RateLimit = mw.NewRateLimit(store, cfg.Redis.RateLimitPerMinute)
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pinger is the liveness surface of a backing service.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks document store and cache connectivity. A missing
// cache is reported as disabled, not degraded.
func healthHandler(store pinger, c pinger, cacheEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"elasticsearch": "ok",
			"cache":         "ok",
		}

		if err := store.Ping(r.Context()); err != nil {
			checks["elasticsearch"] = "degraded"
		}
		if !cacheEnabled {
			checks["cache"] = "disabled"
		} else if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["elasticsearch"] == "degraded" || checks["cache"] == "degraded"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
