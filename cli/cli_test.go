package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bargain-hunter/models"
	"bargain-hunter/remote"
	"bargain-hunter/storage"
)

// isolateEnv clears every variable the config reads so tests only see what
// they set themselves.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANALYZER_NATS_URL", "ANALYZER_SUBJECT", "REFERENCE_DB_DRIVER", "SQLITE_PATH",
		"CATALOG_CSV_PATH", "MAX_RETRIES", "RATE_LIMIT_MS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeResult(t *testing.T, out string) models.SearchResult {
	t.Helper()
	var res models.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestSearchJSON(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "search", "-q", "oled", "-z", "80202", "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "oled", res.Meta.SearchParams.Query)
	assert.Equal(t, 25.0, res.Meta.SearchParams.RadiusMiles)
	for _, l := range res.Results {
		assert.Contains(t, l.Analysis.Notes, "Analyzer not configured")
	}
}

func TestSearchPrintsReport(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "search", "--query", "iphone", "--zip", "80202", "--max-price", "700")
	require.NoError(t, err)
	assert.Contains(t, out, "BARGAIN SEARCH RESULTS")
	assert.Contains(t, out, "iPhone 13 Pro")
}

func TestSearchValidatesFlags(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "search", "--zip", "80202")
	assert.ErrorIs(t, err, models.ErrQueryRequired)

	_, err = run(t, "search", "-q", "tv", "-z", "80202", "--min-price", "900", "--max-price", "100")
	assert.ErrorIs(t, err, models.ErrPriceRange)

	_, err = run(t, "search", "-q", "tv", "-z", "80202", "--radius", "0")
	assert.ErrorIs(t, err, models.ErrInvalidRadius)
}

func TestSearchFromCSVCatalog(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,title,url,price\n"+
		"g1,Garmin Fenix 7 watch,https://example.com/g1,$400\n"+
		"g2,Garmin Fenix 6 watch,https://example.com/g2,\n"), 0o644))
	t.Setenv("CATALOG_CSV_PATH", path)

	out, err := run(t, "search", "-q", "fenix", "-z", "80202", "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "g1", res.Results[0].ID)
	require.NotNil(t, res.Results[0].EstimatedMsrp)
	assert.Equal(t, 640.0, *res.Results[0].EstimatedMsrp)
	assert.Equal(t, 20, res.Results[1].BargainScore)
}

func TestSeedPricesThenSearchUsesStore(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "prices.db")
	t.Setenv("REFERENCE_DB_DRIVER", storage.DriverSQLite)
	t.Setenv("SQLITE_PATH", dbPath)

	pricesPath := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(pricesPath, []byte("model,msrp\n"+
		"Sony WH-1000XM4,279\n"+
		"Garmin Fenix 7,699\n"), 0o644))

	out, err := run(t, "seed-prices", "--file", pricesPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 7 reference prices")

	store, err := storage.OpenReferencePriceStore(context.Background(), storage.DriverSQLite, dbPath)
	require.NoError(t, err)
	all, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1499.0, all["LG C1"])
	assert.Equal(t, 279.0, all["Sony WH-1000XM4"])
	require.NoError(t, store.Close())

	out, err = run(t, "search", "-q", "sony", "-z", "80202", "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Results, 1)
	require.NotNil(t, res.Results[0].EstimatedMsrp)
	assert.Equal(t, 279.0, *res.Results[0].EstimatedMsrp)
}

func TestSeedPricesRejectsBadFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("REFERENCE_DB_DRIVER", storage.DriverSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "prices.db"))

	pricesPath := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(pricesPath, []byte("model,msrp\nLG C1,n/a\n"), 0o644))

	_, err := run(t, "seed-prices", "--file", pricesPath)
	assert.ErrorContains(t, err, "line 2")
}

func TestSeedPricesRequiresDriver(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "seed-prices")
	assert.ErrorContains(t, err, "REFERENCE_DB_DRIVER")
}

func TestAnalyzerWorkerRequiresURL(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "analyzer-worker")
	assert.ErrorContains(t, err, "no NATS URL")
}

func TestSearchWithRemoteAnalyzer(t *testing.T) {
	isolateEnv(t)

	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	require.True(t, srv.ReadyForConnections(3*time.Second))
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	_, err = remote.ServeAnalysis(nc, "bargain.analysis", "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	t.Setenv("ANALYZER_NATS_URL", srv.ClientURL())

	out, err := run(t, "search", "-q", "switch", "-z", "80202", "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Nintendo Switch OLED", res.Results[0].Analysis.DetectedModel)
	assert.Equal(t, "Simulated analysis based on heuristics.", res.Results[0].Analysis.Notes)
}

func TestUnreachableAnalyzerFallsBack(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANALYZER_NATS_URL", "nats://127.0.0.1:1")

	out, err := run(t, "search", "-q", "macbook", "-z", "80202", "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Apple MacBook Air M2", res.Results[0].Analysis.DetectedModel)
	assert.Contains(t, res.Results[0].Analysis.Notes, "Analyzer not configured")
}
