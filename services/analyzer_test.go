package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bargain-hunter/metrics"
	"bargain-hunter/models"
)

type stubRemote struct {
	fn    func(ctx context.Context, listing models.RawListing) (models.ListingAnalysis, error)
	calls atomic.Int32
}

func (s *stubRemote) Analyze(ctx context.Context, listing models.RawListing) (models.ListingAnalysis, error) {
	s.calls.Add(1)
	return s.fn(ctx, listing)
}

var sonyListing = models.RawListing{
	ID:     "sony-1",
	Title:  sonyTitle,
	URL:    "https://example.com/sony",
	Price:  models.Float64(180),
	Source: models.SourceMarketplace,
}

func TestPrimaryAnalyzerUnconfigured(t *testing.T) {
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Logger: newTestLogger(), Metrics: metrics.New()})

	res := a.Analyze(context.Background(), sonyListing)

	assert.True(t, res.Degraded())
	assert.Equal(t, ReasonUnconfigured, res.Reason)
	assert.Equal(t, "Sony WH-1000XM4", res.Analysis.DetectedModel)
	assert.Equal(t, "headphones", res.Analysis.InferredCategory)
	assert.Equal(t, []string{"like new"}, res.Analysis.QualityHints)
	assert.True(t, strings.HasPrefix(res.Analysis.Notes, notesUnconfigured))
	assert.Contains(t, res.Analysis.Notes, "Detected via heuristic: Sony WH-1000XM4")
	assert.True(t, IsDegraded(res.Analysis))
}

func TestPrimaryAnalyzerRemoteSuccess(t *testing.T) {
	remote := &stubRemote{fn: func(context.Context, models.RawListing) (models.ListingAnalysis, error) {
		return models.ListingAnalysis{
			DetectedModel:    "Sony WH-1000XM4",
			InferredCategory: "headphones",
			QualityHints:     []string{"like new", "like new", " ", "original box"},
			Notes:            "identified from title",
		}, nil
	}}
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Remote: remote, MaxAttempts: 3, Logger: newTestLogger()})

	res := a.Analyze(context.Background(), sonyListing)

	assert.False(t, res.Degraded())
	assert.Equal(t, ModePrimary, res.Mode)
	assert.Equal(t, ReasonOK, res.Reason)
	assert.Equal(t, []string{"like new", "original box"}, res.Analysis.QualityHints)
	assert.Equal(t, "identified from title", res.Analysis.Notes)
	assert.False(t, IsDegraded(res.Analysis))
	assert.EqualValues(t, 1, remote.calls.Load())
}

func TestPrimaryAnalyzerRetriesThenSucceeds(t *testing.T) {
	remote := &stubRemote{}
	remote.fn = func(context.Context, models.RawListing) (models.ListingAnalysis, error) {
		if remote.calls.Load() < 2 {
			return models.ListingAnalysis{}, errors.New("temporary")
		}
		return models.ListingAnalysis{DetectedModel: "LG C1"}, nil
	}
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Remote: remote, MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: newTestLogger()})

	res := a.Analyze(context.Background(), sonyListing)

	assert.Equal(t, ModePrimary, res.Mode)
	assert.Equal(t, "LG C1", res.Analysis.DetectedModel)
	assert.Nil(t, res.Analysis.QualityHints)
	assert.EqualValues(t, 2, remote.calls.Load())
}

func TestPrimaryAnalyzerFallsBackOnFailure(t *testing.T) {
	remote := &stubRemote{fn: func(context.Context, models.RawListing) (models.ListingAnalysis, error) {
		return models.ListingAnalysis{}, errors.New("analyzer exploded")
	}}
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Remote: remote, MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: newTestLogger()})

	res := a.Analyze(context.Background(), sonyListing)

	require.True(t, res.Degraded())
	assert.Equal(t, ReasonFailed, res.Reason)
	assert.Equal(t, "Sony WH-1000XM4", res.Analysis.DetectedModel)
	assert.True(t, strings.HasPrefix(res.Analysis.Notes, notesUnavailable))
	assert.EqualValues(t, 2, remote.calls.Load())
}

func TestPrimaryAnalyzerTimeout(t *testing.T) {
	remote := &stubRemote{fn: func(ctx context.Context, _ models.RawListing) (models.ListingAnalysis, error) {
		<-ctx.Done()
		return models.ListingAnalysis{}, ctx.Err()
	}}
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Remote: remote, Timeout: 20 * time.Millisecond, MaxAttempts: 1, Logger: newTestLogger()})

	start := time.Now()
	res := a.Analyze(context.Background(), sonyListing)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, ReasonFailed, res.Reason)
	assert.Equal(t, "headphones", res.Analysis.InferredCategory)
}

func TestPrimaryAnalyzerCancelledContext(t *testing.T) {
	remote := &stubRemote{fn: func(context.Context, models.RawListing) (models.ListingAnalysis, error) {
		return models.ListingAnalysis{DetectedModel: "never"}, nil
	}}
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Remote: remote, MaxAttempts: 3, Logger: newTestLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := a.Analyze(ctx, sonyListing)

	assert.True(t, res.Degraded())
	assert.Zero(t, remote.calls.Load())
}

func TestPrimaryAnalyzerNoHeuristicMatch(t *testing.T) {
	a := NewPrimaryAnalyzer(PrimaryAnalyzerOptions{Logger: newTestLogger()})

	res := a.Analyze(context.Background(), models.RawListing{ID: "x", Title: "Oak dresser"})

	assert.Empty(t, res.Analysis.DetectedModel)
	assert.Nil(t, res.Analysis.QualityHints)
	assert.Equal(t, notesUnconfigured, res.Analysis.Notes)
}
