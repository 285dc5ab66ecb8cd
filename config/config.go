package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	DriverNone       = "none"
	DriverSQLite     = "sqlite"
	DriverClickHouse = "clickhouse"
)

type Config struct {
	Logging    LoggingConfig
	Report     ReportConfig
	Metrics    MetricsConfig
	Storage    StorageConfig
	ClickHouse ClickHouseConfig
	Server     ServerConfig
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

type ReportConfig struct {
	Label         string
	SkipMalformed bool
}

type MetricsConfig struct {
	Textfile string
	Path     string
}

type StorageConfig struct {
	Driver       string
	SQLitePath   string
	MaxRetries   int
	RetryBackoff time.Duration
}

type ClickHouseConfig struct {
	URL              string
	Database         string
	Username         string
	Password         string
	Table            string
	DialTimeout      time.Duration
	MaxExecutionTime int
}

type ServerConfig struct {
	Port       string
	HealthPath string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("error while loading .env file: %v", err)
	}

	backoff, err := time.ParseDuration(cast.ToString(coalesce("STORE_RETRY_BACKOFF", "1s")))
	if err != nil {
		log.Printf("invalid STORE_RETRY_BACKOFF, using default 1s: %v", err)
		backoff = time.Second
	}

	dialTimeout, err := time.ParseDuration(cast.ToString(coalesce("CLICKHOUSE_DIAL_TIMEOUT", "30s")))
	if err != nil {
		log.Printf("invalid CLICKHOUSE_DIAL_TIMEOUT, using default 30s: %v", err)
		dialTimeout = 30 * time.Second
	}

	return &Config{
		Logging: LoggingConfig{
			Level:  cast.ToString(coalesce("LOG_LEVEL", "info")),
			Format: cast.ToString(coalesce("LOG_FORMAT", "json")),
			File:   cast.ToString(coalesce("LOG_FILE", "")),
		},
		Report: ReportConfig{
			Label:         cast.ToString(coalesce("REPORT_LABEL", "baseline")),
			SkipMalformed: cast.ToBool(coalesce("SKIP_MALFORMED", false)),
		},
		Metrics: MetricsConfig{
			Textfile: cast.ToString(coalesce("METRICS_TEXTFILE", "")),
			Path:     cast.ToString(coalesce("METRICS_PATH", "/metrics")),
		},
		Storage: StorageConfig{
			Driver:       cast.ToString(coalesce("STORAGE_DRIVER", DriverNone)),
			SQLitePath:   cast.ToString(coalesce("SQLITE_PATH", "analyzer.db")),
			MaxRetries:   cast.ToInt(coalesce("STORE_MAX_RETRIES", 3)),
			RetryBackoff: backoff,
		},
		ClickHouse: ClickHouseConfig{
			URL:      cast.ToString(coalesce("CLICKHOUSE_URL", "localhost:9000")),
			Database: cast.ToString(coalesce("CLICKHOUSE_DB", "default")),
			Username: cast.ToString(coalesce("CLICKHOUSE_USER", "default")),
			Password: cast.ToString(coalesce("CLICKHOUSE_PASSWORD", "")),
			Table:    cast.ToString(coalesce("CLICKHOUSE_TABLE", "analyzer_runs")),

			DialTimeout:      dialTimeout,
			MaxExecutionTime: cast.ToInt(coalesce("CLICKHOUSE_MAX_EXECUTION_TIME", 60)),
		},
		Server: ServerConfig{
			Port:       cast.ToString(coalesce("SERVER_PORT", ":8080")),
			HealthPath: cast.ToString(coalesce("HEALTH_PATH", "/health")),
		},
	}
}

// Validate rejects settings the analyzer cannot act on.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q (want json or console)", c.Logging.Format)
	}

	switch c.Storage.Driver {
	case DriverNone, DriverClickHouse:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty for sqlite storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.MaxRetries < 1 {
		return fmt.Errorf("STORE_MAX_RETRIES must be at least 1, got %d", c.Storage.MaxRetries)
	}
	if c.Report.Label == "" {
		return fmt.Errorf("REPORT_LABEL cannot be empty")
	}
	return nil
}

func coalesce(key string, value interface{}) interface{} {
	val, exist := os.LookupEnv(key)
	if exist {
		return val
	}
	return value
}
