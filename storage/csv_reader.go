package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bargain-hunter/models"
)

var catalogColumns = []string{"id", "title", "url", "price", "location", "posted_at", "description"}

// CSVReader reads uncleaned catalog records from a CSV file with a header
// row. Columns are matched by name; only title and url are required.
type CSVReader struct {
	path string
}

// NewCSVReader creates a reader for the CSV file at path.
func NewCSVReader(path string) *CSVReader {
	return &CSVReader{path: path}
}

// ReadAll parses every data row of the file. The file is re-read on each call.
func (c *CSVReader) ReadAll(ctx context.Context) ([]*models.CatalogRecord, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []*models.CatalogRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, &models.CatalogRecord{
			ID:          field("id"),
			Title:       field("title"),
			URL:         field("url"),
			RawPrice:    field("price"),
			Location:    field("location"),
			PostedAt:    field("posted_at"),
			Description: field("description"),
		})
	}
	return records, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(catalogColumns))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, col := range catalogColumns {
			if name == col {
				index[col] = i
			}
		}
	}
	for _, required := range []string{"title", "url"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv: missing required column %q", required)
		}
	}
	return index, nil
}

// ReadReferencePrices parses a model,msrp CSV file with a header row into a
// price table. Currency symbols and thousands separators in msrp are ignored.
func ReadReferencePrices(ctx context.Context, path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	modelCol, msrpCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "model":
			modelCol = i
		case "msrp":
			msrpCol = i
		}
	}
	if modelCol < 0 || msrpCol < 0 {
		return nil, fmt.Errorf("csv: price file needs model and msrp columns")
	}

	prices := make(map[string]float64)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}

		model := strings.TrimSpace(row[modelCol])
		raw := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(row[msrpCol]))
		msrp, err := strconv.ParseFloat(raw, 64)
		if model == "" || err != nil || msrp <= 0 {
			return nil, fmt.Errorf("csv: line %d: invalid reference price %q for %q", line, row[msrpCol], model)
		}
		prices[model] = msrp
	}
	return prices, nil
}
