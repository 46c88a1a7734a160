package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/services/browser"
	"github.com/ternarybob/jobradar/internal/services/discovery"
	"github.com/ternarybob/jobradar/internal/services/extract"
	"github.com/ternarybob/jobradar/internal/services/fetch"
	"github.com/ternarybob/jobradar/internal/services/llm"
	"github.com/ternarybob/jobradar/internal/services/llmcache"
	"github.com/ternarybob/jobradar/internal/services/pipeline"
	"github.com/ternarybob/jobradar/internal/services/ratelimit"
	"github.com/ternarybob/jobradar/internal/services/store"
)

// app owns every long-lived component and tears them down in Close.
type app struct {
	config  *common.Config
	logger  arbor.ILogger
	store   *store.Store
	browser *browser.Fetcher
	client  interfaces.CompletionClient
	cache   *llmcache.Cache
	scanner *pipeline.Pipeline
}

func newApp(ctx context.Context, config *common.Config, logger arbor.ILogger) (*app, error) {
	if dir := filepath.Dir(config.Storage.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := store.Open(config.Storage.DBPath, logger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(config.RateLimit, logger)
	httpf := fetch.New(config.HTTP, limiter, logger)
	chrome := browser.New(config.Browser, logger)

	// The LLM tier is optional: without credentials the deterministic
	// strategies (ATS parsers, Schema.org, PDF links) still run.
	var (
		svc    interfaces.LLMService
		cache  *llmcache.Cache
		client interfaces.CompletionClient
	)
	client, err = llm.NewCompletionClient(ctx, config, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM provider unavailable, running extraction without it")
		client = nil
	} else {
		cache = llmcache.New(db, client.Model(), logger)
		svc = llm.NewService(client, cache, logger)
	}

	disc := discovery.New(httpf, svc, logger)
	hybrid := extract.NewHybrid(svc, httpf.Get, config.Scan.MaxPaginationPages, logger)
	scanner := pipeline.New(db, httpf, chrome, svc, disc, hybrid, logger)

	return &app{
		config:  config,
		logger:  logger,
		store:   db,
		browser: chrome,
		client:  client,
		cache:   cache,
		scanner: scanner,
	}, nil
}

func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Browser shutdown failed")
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("LLM client shutdown failed")
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Database close failed")
	}
}

// batch is the result of scanning one site list once.
type batch struct {
	id       string
	started  time.Time
	elapsed  time.Duration
	outcomes []*pipeline.Outcome
	failed   int
}

// scanAll runs the pipeline over every site with a bounded worker pool.
// A failing site never aborts the batch.
func (a *app) scanAll(ctx context.Context, sites []string) *batch {
	b := &batch{
		id:       uuid.New().String(),
		started:  time.Now(),
		outcomes: make([]*pipeline.Outcome, len(sites)),
	}
	logger := a.logger.WithCorrelationId(b.id)
	logger.Info().
		Int("sites", len(sites)).
		Msg("Scan batch starting")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Scan.Workers)

	for i, site := range sites {
		g.Go(func() error {
			out, err := a.scanner.Scan(gctx, site)
			if err != nil {
				logger.Error().
					Err(err).
					Str("site", site).
					Msg("Site scan failed")
			}
			mu.Lock()
			b.outcomes[i] = out
			if out == nil || out.Status == pipeline.StatusFailed {
				b.failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	b.elapsed = time.Since(b.started)
	logger.Info().
		Int("failed", b.failed).
		Str("elapsed", b.elapsed.Round(time.Millisecond).String()).
		Msg("Scan batch complete")

	if a.cache != nil {
		stats := a.cache.SessionStats()
		logger.Info().
			Int64("hits", stats.Hits).
			Int64("misses", stats.Misses).
			Int64("tokens_saved", stats.TokensSaved).
			Msg("LLM cache session stats")
	}
	return b
}
