package storage

import (
	"context"

	"bargain-hunter/models"
)

// CatalogReader is the interface any catalog backend must satisfy.
type CatalogReader interface {
	ReadAll(ctx context.Context) ([]*models.CatalogRecord, error)
}

// ReferencePriceWriter is the interface for persisting reference prices.
type ReferencePriceWriter interface {
	Seed(ctx context.Context, prices map[string]float64) error
	Close() error
}
