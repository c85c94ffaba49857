package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"bargain-hunter/metrics"
	"bargain-hunter/models"
	"bargain-hunter/utils"
)

// markupFactor assumes a used listing sells for roughly 62.5% of retail.
const markupFactor = 1.6

var referencePrices = map[string]float64{
	"Sony WH-1000XM4":        350,
	"Apple iPhone 13 Pro":    999,
	"Specialized Rockhopper": 1100,
	"LG C1":                  1499,
	"Apple MacBook Air M2":   1499,
	"Nintendo Switch OLED":   349,
}

// DefaultReferencePrices returns a copy of the built-in MSRP-by-model table.
func DefaultReferencePrices() map[string]float64 {
	out := make(map[string]float64, len(referencePrices))
	for k, v := range referencePrices {
		out[k] = v
	}
	return out
}

// ReferencePriceLookup is an external reference price provider. A nil price
// with a nil error means the provider has no figure for the listing.
type ReferencePriceLookup interface {
	LookupMsrp(ctx context.Context, analysis models.ListingAnalysis, listing models.RawListing) (*float64, error)
}

// MsrpEstimator resolves an estimated reference price for a listing.
type MsrpEstimator struct {
	table   map[string]float64
	lookup  ReferencePriceLookup
	timeout time.Duration
	logger  *utils.Logger
	metrics *metrics.Metrics
}

// NewMsrpEstimator creates an estimator over table (the built-in table when
// nil) and an optional external lookup.
func NewMsrpEstimator(table map[string]float64, lookup ReferencePriceLookup, timeout time.Duration, logger *utils.Logger, m *metrics.Metrics) *MsrpEstimator {
	if table == nil {
		table = DefaultReferencePrices()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &MsrpEstimator{table: table, lookup: lookup, timeout: timeout, logger: logger, metrics: m}
}

// Estimate returns the reference price, or nil when it cannot be estimated.
// A configured lookup is asked before the built-in table so stored prices
// override it; a lookup failure is logged and reported as nil.
func (e *MsrpEstimator) Estimate(ctx context.Context, analysis models.ListingAnalysis, listing models.RawListing) *float64 {
	if analysis.DetectedModel != "" {
		if e.lookup != nil {
			v, err := e.lookupWithTimeout(ctx, analysis, listing)
			if err != nil {
				e.logger.Warn("[msrp] Reference price lookup failed for %s: %v", listing.ID, err)
				e.metrics.ObserveMsrp("lookup_error")
				return nil
			}
			if v != nil && *v > 0 {
				e.metrics.ObserveMsrp("lookup")
				return v
			}
		}

		if v, ok := e.table[analysis.DetectedModel]; ok && v > 0 {
			e.metrics.ObserveMsrp("table")
			return models.Float64(v)
		}
	}

	if listing.Price == nil {
		e.metrics.ObserveMsrp("none")
		return nil
	}

	estimate := math.Round(*listing.Price * markupFactor)
	if estimate <= 0 {
		e.metrics.ObserveMsrp("none")
		return nil
	}
	e.metrics.ObserveMsrp("markup")
	return models.Float64(estimate)
}

func (e *MsrpEstimator) lookupWithTimeout(ctx context.Context, analysis models.ListingAnalysis, listing models.RawListing) (price *float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			price, err = nil, fmt.Errorf("reference price lookup panic: %v", r)
		}
	}()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.lookup.LookupMsrp(ctx, analysis, listing)
}
