package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"bargain-hunter/models"
)

// ErrEmptyAnalysis is returned when a worker replies without an analysis.
var ErrEmptyAnalysis = errors.New("remote: empty analysis")

// NATSAnalyzer asks an analyzer worker to identify a listing.
type NATSAnalyzer struct {
	nc      *nats.Conn
	subject string
}

// NewNATSAnalyzer creates an analyzer publishing requests on subject.
func NewNATSAnalyzer(nc *nats.Conn, subject string) *NATSAnalyzer {
	return &NATSAnalyzer{nc: nc, subject: subject}
}

// Analyze sends one analysis request. Requests without a ctx deadline are
// bounded by nats.DefaultTimeout.
func (a *NATSAnalyzer) Analyze(ctx context.Context, listing models.RawListing) (models.ListingAnalysis, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}

	resp, err := request[AnalysisRequest, AnalysisResponse](ctx, a.nc, a.subject, AnalysisRequest{
		Listing: listing,
		Prompt:  BuildPrompt(listing),
	})
	if err != nil {
		return models.ListingAnalysis{}, err
	}
	if resp.Error != "" {
		return models.ListingAnalysis{}, fmt.Errorf("remote: analyzer error: %s", resp.Error)
	}
	if resp.Analysis == nil {
		return models.ListingAnalysis{}, ErrEmptyAnalysis
	}
	return *resp.Analysis, nil
}

// BuildPrompt renders the instruction text for a language-model backed
// analyzer worker.
func BuildPrompt(listing models.RawListing) string {
	return "You are an expert product identifier. Provide a concise JSON object with keys " +
		"detectedModel, inferredCategory, qualityHints, notes based on this listing.\n" +
		"Title: " + listing.Title + "\n" +
		"Description: " + listing.Description
}
