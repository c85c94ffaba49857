package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported reference price store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// EnvFileLoaded is false when no .env file was found and only the process
	// environment was used.
	EnvFileLoaded bool

	MaxConcurrency   int
	RateLimitMs      int
	MaxRetries       int
	RetryBaseDelayMs int

	AnalyzerNATSURL     string
	AnalyzerSubject     string
	AnalyzerTimeoutMs   int
	MsrpLookupTimeoutMs int

	ReferenceDBDriver string
	PostgresHost      string
	PostgresPort      string
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	PostgresSSLMode   string
	SQLitePath        string

	CatalogCSVPath string

	HTTPPort   int
	CORSOrigin string
	LogLevel   string
}

// Load reads the given .env files (".env" when none are given) and returns a
// populated Config. Missing files are not an error.
func Load(envFiles ...string) *Config {
	loaded := godotenv.Load(envFiles...) == nil

	return &Config{
		EnvFileLoaded: loaded,

		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 8),
		RateLimitMs:      getEnvInt("RATE_LIMIT_MS", 0),
		MaxRetries:       getEnvInt("MAX_RETRIES", 2),
		RetryBaseDelayMs: getEnvInt("RETRY_BASE_DELAY_MS", 200),

		AnalyzerNATSURL:     getEnv("ANALYZER_NATS_URL", ""),
		AnalyzerSubject:     getEnv("ANALYZER_SUBJECT", "bargain.analysis"),
		AnalyzerTimeoutMs:   getEnvInt("ANALYZER_TIMEOUT_MS", 3000),
		MsrpLookupTimeoutMs: getEnvInt("MSRP_LOOKUP_TIMEOUT_MS", 2000),

		ReferenceDBDriver: getEnv("REFERENCE_DB_DRIVER", ""),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:      getEnv("POSTGRES_USER", "bargain"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "bargain123"),
		PostgresDB:        getEnv("POSTGRES_DB", "bargain_db"),
		PostgresSSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:        getEnv("SQLITE_PATH", "./data/reference_prices.db"),

		CatalogCSVPath: getEnv("CATALOG_CSV_PATH", ""),

		HTTPPort:   getEnvInt("HTTP_PORT", 8080),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the connection string for the configured reference price
// store driver, or "" when no store is configured.
func (c *Config) DSN() string {
	switch c.ReferenceDBDriver {
	case DriverPostgres:
		return "host=" + c.PostgresHost +
			" port=" + c.PostgresPort +
			" user=" + c.PostgresUser +
			" password=" + c.PostgresPassword +
			" dbname=" + c.PostgresDB +
			" sslmode=" + c.PostgresSSLMode
	case DriverSQLite:
		return c.SQLitePath
	default:
		return ""
	}
}

func (c *Config) RetryBaseDelay() time.Duration { return ms(c.RetryBaseDelayMs) }

func (c *Config) AnalyzerTimeout() time.Duration { return ms(c.AnalyzerTimeoutMs) }

func (c *Config) MsrpLookupTimeout() time.Duration { return ms(c.MsrpLookupTimeoutMs) }

func ms(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
