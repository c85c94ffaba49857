package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bargain-hunter/metrics"
	"bargain-hunter/models"
	"bargain-hunter/utils"
)

const tracerName = "bargain-hunter/services"

// Enricher fans raw listings through analysis, reference pricing, scoring
// and summary generation, then ranks them by bargain score.
type Enricher struct {
	analyzer   *PrimaryAnalyzer
	estimator  *MsrpEstimator
	scorer     *ScoreCalculator
	summarizer *SummaryGenerator

	maxWorkers  int
	rateLimitMs int

	logger  *utils.Logger
	metrics *metrics.Metrics
}

// EnricherOptions configures an Enricher. Nil stages get their defaults.
type EnricherOptions struct {
	Analyzer    *PrimaryAnalyzer
	Estimator   *MsrpEstimator
	Scorer      *ScoreCalculator
	Summarizer  *SummaryGenerator
	MaxWorkers  int
	RateLimitMs int
	Logger      *utils.Logger
	Metrics     *metrics.Metrics
}

// NewEnricher creates an Enricher.
func NewEnricher(opts EnricherOptions) *Enricher {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Analyzer == nil {
		opts.Analyzer = NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	if opts.Estimator == nil {
		opts.Estimator = NewMsrpEstimator(nil, nil, 0, opts.Logger, opts.Metrics)
	}
	if opts.Scorer == nil {
		opts.Scorer = NewScoreCalculator(nil)
	}
	if opts.Summarizer == nil {
		opts.Summarizer = NewSummaryGenerator(nil)
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 8
	}
	return &Enricher{
		analyzer:    opts.Analyzer,
		estimator:   opts.Estimator,
		scorer:      opts.Scorer,
		summarizer:  opts.Summarizer,
		maxWorkers:  opts.MaxWorkers,
		rateLimitMs: opts.RateLimitMs,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// Enrich enriches every listing concurrently and returns them sorted by
// bargain score descending, ties broken by id. Individual listings never
// fail; the only error returned is ctx's, when ctx ended before every
// listing's pipeline could start.
func (e *Enricher) Enrich(ctx context.Context, listings []models.RawListing) ([]models.EnrichedListing, error) {
	start := time.Now()
	defer e.metrics.ObserveEnrichment(start)

	out := make([]models.EnrichedListing, len(listings))
	pool := utils.NewWorkerPool(e.maxWorkers, e.rateLimitMs)

	var aborted error
	for i := range listings {
		if err := pool.Submit(ctx, func() {
			out[i] = e.enrichOne(ctx, listings[i])
		}); err != nil {
			aborted = err
			break
		}
	}
	pool.Wait()

	if aborted == nil && pool.Skipped() > 0 {
		// the limiter also gives up early when the deadline is too close to wait
		if aborted = ctx.Err(); aborted == nil {
			aborted = context.DeadlineExceeded
		}
	}
	if aborted != nil {
		e.logger.Warn("[enricher] Enrichment aborted after %v: %v", time.Since(start), aborted)
		return nil, aborted
	}

	SortByScore(out)
	e.logger.Debug("[enricher] Enriched %d listings in %v", len(out), time.Since(start))
	return out, nil
}

func (e *Enricher) enrichOne(ctx context.Context, listing models.RawListing) models.EnrichedListing {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "enrich.listing",
		trace.WithAttributes(attribute.String("listing.id", listing.ID)))
	defer span.End()

	result := e.analyzer.Analyze(ctx, listing)
	msrp := e.estimator.Estimate(ctx, result.Analysis, listing)

	sc := models.ScoreContext{Listing: listing, Analysis: result.Analysis, EstimatedMsrp: msrp}
	score := e.scorer.Score(sc)
	e.metrics.ObserveScore(score)

	span.SetAttributes(
		attribute.String("analysis.mode", string(result.Mode)),
		attribute.Int("bargain.score", score),
	)

	return models.EnrichedListing{
		RawListing:       listing,
		Analysis:         result.Analysis,
		EstimatedMsrp:    msrp,
		BargainScore:     score,
		ReasoningSummary: e.summarizer.Summarize(sc),
	}
}

// SortByScore orders listings by bargain score descending, then id ascending.
// The sort is stable so equal (score, id) pairs keep their input order.
func SortByScore(listings []models.EnrichedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		if listings[i].BargainScore != listings[j].BargainScore {
			return listings[i].BargainScore > listings[j].BargainScore
		}
		return listings[i].ID < listings[j].ID
	})
}
