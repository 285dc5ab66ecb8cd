package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdirTest(t, t.TempDir())
	for _, key := range []string{"LOG_LEVEL", "LOG_FORMAT", "REPORT_LABEL", "SKIP_MALFORMED", "STORAGE_DRIVER", "STORE_MAX_RETRIES", "STORE_RETRY_BACKOFF", "CLICKHOUSE_DIAL_TIMEOUT", "CLICKHOUSE_MAX_EXECUTION_TIME"} {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}

	cfg := Load()

	if cfg.Report.Label != "baseline" {
		t.Errorf("Label = %q, want baseline", cfg.Report.Label)
	}
	if cfg.Report.SkipMalformed {
		t.Error("SkipMalformed = true, want false")
	}
	if cfg.Storage.Driver != DriverNone {
		t.Errorf("Driver = %q, want %q", cfg.Storage.Driver, DriverNone)
	}
	if cfg.Storage.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Storage.MaxRetries)
	}
	if cfg.Storage.RetryBackoff != time.Second {
		t.Errorf("RetryBackoff = %v, want 1s", cfg.Storage.RetryBackoff)
	}
	if cfg.ClickHouse.DialTimeout != 30*time.Second || cfg.ClickHouse.MaxExecutionTime != 60 {
		t.Errorf("ClickHouse timeouts = %v/%d, want 30s/60", cfg.ClickHouse.DialTimeout, cfg.ClickHouse.MaxExecutionTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdirTest(t, t.TempDir())
	t.Setenv("REPORT_LABEL", "keepalive-on")
	t.Setenv("SKIP_MALFORMED", "true")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("STORE_MAX_RETRIES", "5")
	t.Setenv("STORE_RETRY_BACKOFF", "250ms")
	t.Setenv("LOG_FORMAT", "console")

	cfg := Load()

	if cfg.Report.Label != "keepalive-on" {
		t.Errorf("Label = %q", cfg.Report.Label)
	}
	if !cfg.Report.SkipMalformed {
		t.Error("SkipMalformed = false, want true")
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "/tmp/runs.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Storage.MaxRetries)
	}
	if cfg.Storage.RetryBackoff != 250*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want 250ms", cfg.Storage.RetryBackoff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REPORT_LABEL=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	chdirTest(t, dir)
	if v, ok := os.LookupEnv("REPORT_LABEL"); ok {
		os.Unsetenv("REPORT_LABEL")
		t.Cleanup(func() { os.Setenv("REPORT_LABEL", v) })
	}
	t.Cleanup(func() { os.Unsetenv("REPORT_LABEL") })

	cfg := Load()
	if cfg.Report.Label != "from-dotenv" {
		t.Errorf("Label = %q, want from-dotenv", cfg.Report.Label)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Logging: LoggingConfig{Level: "info", Format: "json"},
			Report:  ReportConfig{Label: "baseline"},
			Storage: StorageConfig{Driver: DriverNone, MaxRetries: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "mongo" }, "STORAGE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = DriverSQLite }, "SQLITE_PATH"},
		{"zero retries", func(c *Config) { c.Storage.MaxRetries = 0 }, "STORE_MAX_RETRIES"},
		{"empty label", func(c *Config) { c.Report.Label = "" }, "REPORT_LABEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

// chdirTest changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdirTest(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
