package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"bargain-hunter/config"
	"bargain-hunter/metrics"
	"bargain-hunter/remote"
	"bargain-hunter/scraper/marketplace"
	"bargain-hunter/services"
	"bargain-hunter/storage"
	"bargain-hunter/utils"
)

// app carries the loaded configuration and shared dependencies through the
// command tree.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	metrics *metrics.Metrics
}

// pipeline is a fully wired bargain search plus the resources it holds.
type pipeline struct {
	search  *services.BargainSearch
	closers []func()
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// connectNATS dials the analyzer bus, or returns nil when none is configured.
func (a *app) connectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("bargain-hunter"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				a.logger.Warn("[nats] Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			a.logger.Info("[nats] Reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return nc, nil
}

// openReferenceStore opens the configured reference price store, or returns
// nil when none is configured.
func (a *app) openReferenceStore(ctx context.Context) (*storage.ReferencePriceStore, error) {
	if a.cfg.ReferenceDBDriver == "" {
		return nil, nil
	}
	return storage.OpenReferencePriceStore(ctx, a.cfg.ReferenceDBDriver, a.cfg.DSN())
}

// buildPipeline wires source, analyzer, estimator and enricher from config.
func (a *app) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg := a.cfg
	p := &pipeline{}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}

	heuristic := services.NewHeuristicAnalyzer(nil)

	var remoteAnalyzer services.Analyzer
	nc, err := a.connectNATS(cfg.AnalyzerNATSURL)
	if err != nil {
		a.logger.Warn("[analyzer] %v; continuing with heuristic analysis only", err)
	} else if nc != nil {
		p.closers = append(p.closers, nc.Close)
		remoteAnalyzer = remote.NewNATSAnalyzer(nc, cfg.AnalyzerSubject)
		a.logger.Info("[analyzer] Remote analyzer on %s (subject %s)", cfg.AnalyzerNATSURL, cfg.AnalyzerSubject)
	}

	var lookup services.ReferencePriceLookup
	store, err := a.openReferenceStore(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}
	if store != nil {
		p.closers = append(p.closers, func() { store.Close() })
		lookup = store
		a.logger.Info("[msrp] Reference price store: %s", cfg.ReferenceDBDriver)
	}

	cleaner := services.NewCleaner(a.logger)
	var source services.ListingSource
	if cfg.CatalogCSVPath != "" {
		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay(), Logger: a.logger}
		source = marketplace.NewCSVSource(storage.NewCSVReader(cfg.CatalogCSVPath), cleaner, retry, a.logger)
		a.logger.Info("[marketplace] Catalog: %s", cfg.CatalogCSVPath)
	} else {
		source = marketplace.NewSampleSource(cleaner, time.Now, a.logger)
	}

	analyzer := services.NewPrimaryAnalyzer(services.PrimaryAnalyzerOptions{
		Remote:      remoteAnalyzer,
		Heuristic:   heuristic,
		Timeout:     cfg.AnalyzerTimeout(),
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay(),
		Logger:      a.logger,
		Metrics:     a.metrics,
	})

	enricher := services.NewEnricher(services.EnricherOptions{
		Analyzer:    analyzer,
		Estimator:   services.NewMsrpEstimator(nil, lookup, cfg.MsrpLookupTimeout(), a.logger, a.metrics),
		Scorer:      services.NewScoreCalculator(time.Now),
		Summarizer:  services.NewSummaryGenerator(heuristic),
		MaxWorkers:  cfg.MaxConcurrency,
		RateLimitMs: cfg.RateLimitMs,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})

	p.search = services.NewBargainSearch(source, enricher, a.logger)
	return p, nil
}
