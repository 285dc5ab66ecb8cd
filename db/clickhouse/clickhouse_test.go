package clickhouse

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Ucell/log-analyzer/config"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		conf     config.ClickHouseConfig
		addrs    []string
		settings bool
	}{
		{"single host", config.ClickHouseConfig{URL: "localhost:9000", MaxExecutionTime: 60}, []string{"localhost:9000"}, true},
		{"cluster", config.ClickHouseConfig{URL: "ch1:9000, ch2:9000,", MaxExecutionTime: 60}, []string{"ch1:9000", "ch2:9000"}, true},
		{"no execution limit", config.ClickHouseConfig{URL: "localhost:9000"}, []string{"localhost:9000"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.conf.Database, tt.conf.Username, tt.conf.DialTimeout = "logs", "analyzer", 5*time.Second
			opts := options(tt.conf)

			if !reflect.DeepEqual(opts.Addr, tt.addrs) {
				t.Errorf("Addr = %q, want %q", opts.Addr, tt.addrs)
			}
			if opts.Auth.Database != "logs" || opts.Auth.Username != "analyzer" {
				t.Errorf("Auth = %+v", opts.Auth)
			}
			if opts.DialTimeout != 5*time.Second {
				t.Errorf("DialTimeout = %v", opts.DialTimeout)
			}
			if got := opts.Settings["max_execution_time"] != nil; got != tt.settings {
				t.Errorf("max_execution_time set = %v, want %v", got, tt.settings)
			}
		})
	}
}

func TestConnectionCHWithoutAddress(t *testing.T) {
	if _, err := ConnectionCH(context.Background(), config.ClickHouseConfig{URL: " , "}); err == nil {
		t.Error("expected error for empty address list")
	}
}
