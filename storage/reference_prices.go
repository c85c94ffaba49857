package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"bargain-hunter/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ReferencePriceStore keeps MSRP figures by canonical model name in
// PostgreSQL or SQLite. It serves as the external reference price lookup of
// the MSRP estimator.
type ReferencePriceStore struct {
	db     *sql.DB
	driver string
}

// OpenReferencePriceStore connects to the store, waits for it to accept
// connections and runs schema migrations.
func OpenReferencePriceStore(ctx context.Context, driver, dsn string) (*ReferencePriceStore, error) {
	attempts := 1
	switch driver {
	case DriverPostgres:
		attempts = 10
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("reference prices: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("reference prices: open: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

ping:
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil || i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break ping
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reference prices: ping failed after retries: %w", err)
	}

	s := &ReferencePriceStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("reference prices: migrate: %w", err)
	}
	return s, nil
}

func (s *ReferencePriceStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reference_prices (
			model      TEXT          PRIMARY KEY,
			msrp       NUMERIC(10,2) NOT NULL CHECK (msrp > 0),
			updated_at TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (s *ReferencePriceStore) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Seed upserts prices in batches. Non-positive prices are rejected.
func (s *ReferencePriceStore) Seed(ctx context.Context, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}

	names := make([]string, 0, len(prices))
	for model, msrp := range prices {
		if strings.TrimSpace(model) == "" {
			return errors.New("reference prices: empty model name")
		}
		if msrp <= 0 {
			return fmt.Errorf("reference prices: non-positive msrp %.2f for %q", msrp, model)
		}
		names = append(names, model)
	}
	sort.Strings(names)

	const batchSize = 50
	for i := 0; i < len(names); i += batchSize {
		end := i + batchSize
		if end > len(names) {
			end = len(names)
		}
		if err := s.upsertBatch(ctx, names[i:end], prices); err != nil {
			return fmt.Errorf("reference prices: seed: %w", err)
		}
	}
	return nil
}

func (s *ReferencePriceStore) upsertBatch(ctx context.Context, batch []string, prices map[string]float64) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*2)

	for idx, model := range batch {
		base := idx * 2
		valueStrings = append(valueStrings,
			fmt.Sprintf("(%s,%s)", s.placeholder(base+1), s.placeholder(base+2)))
		valueArgs = append(valueArgs, model, prices[model])
	}

	query := fmt.Sprintf(`
		INSERT INTO reference_prices (model, msrp)
		VALUES %s
		ON CONFLICT (model) DO UPDATE SET msrp = excluded.msrp, updated_at = CURRENT_TIMESTAMP
	`, strings.Join(valueStrings, ","))

	_, err := s.db.ExecContext(ctx, query, valueArgs...)
	return err
}

// Lookup returns the stored MSRP for model, or nil when there is none.
func (s *ReferencePriceStore) Lookup(ctx context.Context, model string) (*float64, error) {
	var msrp float64
	err := s.db.QueryRowContext(ctx,
		"SELECT msrp FROM reference_prices WHERE model = "+s.placeholder(1), model).Scan(&msrp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reference prices: lookup %q: %w", model, err)
	}
	return &msrp, nil
}

// LookupMsrp looks up the detected model of analysis. Listings without a
// detected model have no reference price.
func (s *ReferencePriceStore) LookupMsrp(ctx context.Context, analysis models.ListingAnalysis, _ models.RawListing) (*float64, error) {
	if analysis.DetectedModel == "" {
		return nil, nil
	}
	return s.Lookup(ctx, analysis.DetectedModel)
}

// FetchAll retrieves every stored reference price.
func (s *ReferencePriceStore) FetchAll(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT model, msrp FROM reference_prices ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("reference prices: fetch all: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var model string
		var msrp float64
		if err := rows.Scan(&model, &msrp); err != nil {
			return nil, fmt.Errorf("reference prices: scan row: %w", err)
		}
		prices[model] = msrp
	}
	return prices, rows.Err()
}

func (s *ReferencePriceStore) Close() error {
	return s.db.Close()
}
