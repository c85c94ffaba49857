package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bargain-hunter/metrics"
	"bargain-hunter/models"
	"bargain-hunter/utils"
)

// Analyzer is an external (possibly slow or unreliable) listing analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, listing models.RawListing) (models.ListingAnalysis, error)
}

// AnalysisMode tells which analyzer produced a ListingAnalysis.
type AnalysisMode string

const (
	ModePrimary   AnalysisMode = "primary"
	ModeHeuristic AnalysisMode = "heuristic"
)

// Fallback reasons, also used as metric labels.
const (
	ReasonOK           = "ok"
	ReasonUnconfigured = "unconfigured"
	ReasonFailed       = "failed"
)

const (
	notesUnconfigured = "Analyzer not configured; heuristic analysis used."
	notesUnavailable  = "Analyzer unavailable; heuristic analysis used."
)

// AnalysisResult is the outcome of PrimaryAnalyzer.Analyze.
type AnalysisResult struct {
	Analysis models.ListingAnalysis
	Mode     AnalysisMode
	Reason   string
}

// Degraded reports whether the analysis came from the heuristic fallback.
func (r AnalysisResult) Degraded() bool { return r.Mode == ModeHeuristic }

// PrimaryAnalyzer tries the remote analyzer and falls back to heuristics.
// Analyze never returns an error.
type PrimaryAnalyzer struct {
	remote    Analyzer
	heuristic *HeuristicAnalyzer
	timeout   time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
	metrics   *metrics.Metrics
}

// PrimaryAnalyzerOptions configures a PrimaryAnalyzer. Remote may be nil,
// in which case every analysis is heuristic.
type PrimaryAnalyzerOptions struct {
	Remote      Analyzer
	Heuristic   *HeuristicAnalyzer
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *utils.Logger
	Metrics     *metrics.Metrics
}

// NewPrimaryAnalyzer creates a PrimaryAnalyzer.
func NewPrimaryAnalyzer(opts PrimaryAnalyzerOptions) *PrimaryAnalyzer {
	if opts.Heuristic == nil {
		opts.Heuristic = NewHeuristicAnalyzer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &PrimaryAnalyzer{
		remote:    opts.Remote,
		heuristic: opts.Heuristic,
		timeout:   opts.Timeout,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			BaseDelay:   opts.BaseDelay,
			Logger:      opts.Logger,
		},
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Analyze returns the remote analysis of listing, or a heuristic analysis
// tagged as degraded when the remote analyzer is unconfigured or fails.
func (a *PrimaryAnalyzer) Analyze(ctx context.Context, listing models.RawListing) AnalysisResult {
	if a.remote == nil {
		a.logger.Debug("[analyzer] No remote analyzer configured; heuristic analysis for %s", listing.ID)
		return a.fallback(listing, ReasonUnconfigured, notesUnconfigured)
	}

	var analysis models.ListingAnalysis
	err := a.retry.Do(ctx, "analyze-"+listing.ID, func(ctx context.Context) (err error) {
		callCtx, cancel := a.withTimeout(ctx)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("remote analyzer panic: %v", r)
			}
		}()

		res, err := a.remote.Analyze(callCtx, listing)
		if err != nil {
			return err
		}
		analysis = res
		return nil
	})
	if err != nil {
		a.logger.Warn("[analyzer] Remote analysis failed for %s: %v", listing.ID, err)
		return a.fallback(listing, ReasonFailed, notesUnavailable)
	}

	analysis.QualityHints = dedupe(analysis.QualityHints)
	a.metrics.ObserveAnalysis(string(ModePrimary), ReasonOK)
	return AnalysisResult{Analysis: analysis, Mode: ModePrimary, Reason: ReasonOK}
}

func (a *PrimaryAnalyzer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *PrimaryAnalyzer) fallback(listing models.RawListing, reason, note string) AnalysisResult {
	analysis := a.heuristic.Analyze(listing)
	analysis.Notes = joinNotes(note, analysis.Notes)
	a.metrics.ObserveAnalysis(string(ModeHeuristic), reason)
	return AnalysisResult{Analysis: analysis, Mode: ModeHeuristic, Reason: reason}
}

// IsDegraded reports whether analysis notes carry the heuristic-fallback tag.
func IsDegraded(analysis models.ListingAnalysis) bool {
	return strings.HasPrefix(analysis.Notes, notesUnconfigured) ||
		strings.HasPrefix(analysis.Notes, notesUnavailable)
}

func joinNotes(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// dedupe drops empty and repeated labels, keeping first-seen order. A nil or
// all-empty input yields nil.
func dedupe(labels []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
