package services

import (
	"context"
	"fmt"
	"time"

	"bargain-hunter/models"
	"bargain-hunter/utils"
)

// ListingSource retrieves raw listings already filtered by the search params.
type ListingSource interface {
	Search(ctx context.Context, params models.SearchParams) ([]models.RawListing, error)
}

// BargainSearch runs a complete search: retrieval, enrichment and ranking.
type BargainSearch struct {
	source   ListingSource
	enricher *Enricher
	logger   *utils.Logger
}

// NewBargainSearch creates a BargainSearch.
func NewBargainSearch(source ListingSource, enricher *Enricher, logger *utils.Logger) *BargainSearch {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &BargainSearch{source: source, enricher: enricher, logger: logger}
}

// Run executes a search for already-normalised params.
func (s *BargainSearch) Run(ctx context.Context, params models.SearchParams) (*models.SearchResult, error) {
	start := time.Now()
	s.logger.Info("[search] Running bargain search — query: %q | zip: %s | radius: %.0fmi",
		params.Query, params.ZipCode, params.RadiusMiles)

	raw, err := s.source.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search: fetch listings: %w", err)
	}

	enriched, err := s.enricher.Enrich(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("search: enrich listings: %w", err)
	}

	elapsed := time.Since(start)
	s.logger.Info("[search] %d listings ranked in %v", len(enriched), elapsed)

	return &models.SearchResult{
		Results: enriched,
		Meta: models.SearchMeta{
			TotalListingsFetched:  len(raw),
			TotalListingsReturned: len(enriched),
			SearchParams:          params,
			ExecutionTimeMs:       elapsed.Milliseconds(),
		},
	}, nil
}
