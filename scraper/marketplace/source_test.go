package marketplace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bargain-hunter/models"
	"bargain-hunter/services"
	"bargain-hunter/storage"
	"bargain-hunter/utils"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSample() *Source {
	logger := utils.NewNopLogger()
	return NewSampleSource(services.NewCleaner(logger), func() time.Time { return testNow }, logger)
}

func titles(listings []models.RawListing) []string {
	var out []string
	for _, l := range listings {
		out = append(out, l.Title)
	}
	return out
}

func TestSampleSourceCatalog(t *testing.T) {
	all, err := newSample().Search(context.Background(), models.SearchParams{})
	require.NoError(t, err)
	require.Len(t, all, 6)

	ids := make(map[string]bool)
	for _, l := range all {
		assert.NotEmpty(t, l.ID)
		ids[l.ID] = true
		require.NotNil(t, l.Price)
		assert.Equal(t, models.SourceMarketplace, l.Source)
		_, err := time.Parse(time.RFC3339Nano, l.PostedAt)
		assert.NoError(t, err)
	}
	assert.Len(t, ids, 6)

	days, ok := services.DaysSince(all[3].PostedAt, testNow)
	require.True(t, ok)
	assert.Equal(t, 20, days)
}

func TestSampleSourceIDsAreStable(t *testing.T) {
	src := newSample()
	first, err := src.Search(context.Background(), models.SearchParams{Query: "sony"})
	require.NoError(t, err)
	second, err := src.Search(context.Background(), models.SearchParams{Query: "SONY"})
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSearchFilters(t *testing.T) {
	src := newSample()

	tests := []struct {
		name   string
		params models.SearchParams
		want   []string
	}{
		{
			name:   "query is a case-insensitive title substring",
			params: models.SearchParams{Query: "OLED"},
			want:   []string{`LG C1 55" OLED TV - works great`, "Nintendo Switch OLED - bundle with games"},
		},
		{
			name:   "description is not searched",
			params: models.SearchParams{Query: "space gray"},
			want:   nil,
		},
		{
			name:   "min price",
			params: models.SearchParams{Query: "", MinPrice: models.Float64(700)},
			want:   []string{`LG C1 55" OLED TV - works great`, `MacBook Air M2 13" 16GB RAM 512GB SSD`},
		},
		{
			name:   "max price",
			params: models.SearchParams{MaxPrice: models.Float64(320)},
			want:   []string{"Sony WH-1000XM4 noise cancelling headphones - like new", "Nintendo Switch OLED - bundle with games"},
		},
		{
			name:   "price range with query",
			params: models.SearchParams{Query: "o", MinPrice: models.Float64(500), MaxPrice: models.Float64(700)},
			want:   []string{"iPhone 13 Pro 256GB - excellent condition", "Specialized Rockhopper 29er mountain bike"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Search(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceUnknownPricePassesBounds(t *testing.T) {
	path := writeCatalog(t, "id,title,url,price\n"+
		"1,Garmin Fenix 7,https://example.com/1,\n"+
		"2,Garmin Forerunner,https://example.com/2,$150\n"+
		"3,Garmin Edge,,$90\n")
	logger := utils.NewNopLogger()
	src := NewCSVSource(storage.NewCSVReader(path), services.NewCleaner(logger), nil, logger)

	got, err := src.Search(context.Background(), models.SearchParams{
		Query:    "garmin",
		MinPrice: models.Float64(200),
		MaxPrice: models.Float64(300),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Nil(t, got[0].Price)
}

type flakyReader struct {
	failures int
	calls    int
}

func (f *flakyReader) ReadAll(context.Context) ([]*models.CatalogRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("catalog locked")
	}
	return []*models.CatalogRecord{{ID: "x", Title: "Switch OLED", URL: "https://example.com/x", RawPrice: "$300"}}, nil
}

func TestCSVSourceRetriesReads(t *testing.T) {
	reader := &flakyReader{failures: 1}
	logger := utils.NewNopLogger()
	retry := &utils.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}
	src := NewCSVSource(reader, services.NewCleaner(logger), retry, logger)

	got, err := src.Search(context.Background(), models.SearchParams{Query: "switch"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, reader.calls)
}

func TestCSVSourceLoadError(t *testing.T) {
	logger := utils.NewNopLogger()
	src := NewCSVSource(&flakyReader{failures: 5}, services.NewCleaner(logger), nil, logger)

	_, err := src.Search(context.Background(), models.SearchParams{Query: "x"})
	assert.ErrorContains(t, err, "marketplace: load catalog")
}
