package marketplace

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"bargain-hunter/models"
	"bargain-hunter/services"
	"bargain-hunter/storage"
	"bargain-hunter/utils"
)

type sampleEntry struct {
	title, url, price, location, description string
	age                                      time.Duration
}

const day = 24 * time.Hour

var sampleCatalog = []sampleEntry{
	{
		title:       "Sony WH-1000XM4 noise cancelling headphones - like new",
		url:         "https://denver.marketplace.example/ele/wh1000xm4",
		price:       "$180",
		location:    "Capitol Hill",
		description: "Barely used Sony WH-1000XM4 headphones with case and cable.",
		age:         6 * time.Hour,
	},
	{
		title:       "iPhone 13 Pro 256GB - excellent condition",
		url:         "https://denver.marketplace.example/mob/iphone13pro",
		price:       "$650",
		location:    "Lakewood",
		description: "Unlocked iPhone 13 Pro, includes box and charger. Battery health 91%.",
		age:         2 * day,
	},
	{
		title:       "Specialized Rockhopper 29er mountain bike",
		url:         "https://denver.marketplace.example/bik/rockhopper",
		price:       "$525",
		location:    "Aurora",
		description: "2021 Specialized Rockhopper Comp, recently tuned, minor scratches.",
		age:         7 * day,
	},
	{
		title:       `LG C1 55" OLED TV - works great`,
		url:         "https://denver.marketplace.example/ele/lgc1",
		price:       "$750",
		location:    "Highlands Ranch",
		description: "LG C1 55 inch OLED, includes stand and remote. No burn-in.",
		age:         20 * day,
	},
	{
		title:       `MacBook Air M2 13" 16GB RAM 512GB SSD`,
		url:         "https://denver.marketplace.example/sys/mba-m2",
		price:       "$950",
		location:    "Downtown Denver",
		description: "Apple MacBook Air M2, space gray, lightly used, includes box.",
		age:         3 * day,
	},
	{
		title:       "Nintendo Switch OLED - bundle with games",
		url:         "https://denver.marketplace.example/vgm/switch-oled",
		price:       "$320",
		location:    "Boulder",
		description: "Nintendo Switch OLED with 3 games and carrying case.",
		age:         12 * day,
	},
}

// Source serves marketplace listings from a built-in sample catalog or a
// CSV catalog file and filters them by search params.
type Source struct {
	load   func(ctx context.Context) ([]models.RawListing, error)
	logger *utils.Logger
}

// NewSampleSource creates a Source over the built-in Denver sample catalog.
// Posting dates are relative to now and ids are generated once per Source.
func NewSampleSource(cleaner *services.Cleaner, now func() time.Time, logger *utils.Logger) *Source {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	ts := now().UTC()
	records := make([]*models.CatalogRecord, 0, len(sampleCatalog))
	for _, e := range sampleCatalog {
		records = append(records, &models.CatalogRecord{
			Title:       e.title,
			URL:         e.url,
			RawPrice:    e.price,
			Location:    e.location,
			PostedAt:    ts.Add(-e.age).Format(time.RFC3339Nano),
			Description: e.description,
		})
	}
	listings := cleaner.Clean(records)

	return &Source{
		load: func(context.Context) ([]models.RawListing, error) {
			return listings, nil
		},
		logger: logger,
	}
}

// NewCSVSource creates a Source that re-reads and cleans the catalog on every
// search. Reads are retried with retry.
func NewCSVSource(reader storage.CatalogReader, cleaner *services.Cleaner, retry *utils.RetryConfig, logger *utils.Logger) *Source {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}

	return &Source{
		load: func(ctx context.Context) ([]models.RawListing, error) {
			var records []*models.CatalogRecord
			err := retry.Do(ctx, "read-catalog", func(ctx context.Context) error {
				var err error
				records, err = reader.ReadAll(ctx)
				return err
			})
			if err != nil {
				return nil, err
			}
			return cleaner.Clean(records), nil
		},
		logger: logger,
	}
}

// Search returns the catalog listings whose title contains the query
// (case-insensitive) and whose price lies within the optional bounds. A
// listing with an unknown price never fails a price bound. Category, zip code
// and radius are accepted but not applied.
func (s *Source) Search(ctx context.Context, params models.SearchParams) ([]models.RawListing, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketplace: load catalog: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(params.Query))
	var matched []models.RawListing
	for _, l := range all {
		if !strings.Contains(strings.ToLower(l.Title), query) {
			continue
		}
		if params.MinPrice != nil && priceOr(l.Price, math.MaxFloat64) < *params.MinPrice {
			continue
		}
		if params.MaxPrice != nil && priceOr(l.Price, 0) > *params.MaxPrice {
			continue
		}
		matched = append(matched, l)
	}

	s.logger.Info("[marketplace] %d of %d catalog listings match %q", len(matched), len(all), params.Query)
	return matched, nil
}

func priceOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
