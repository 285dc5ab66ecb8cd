package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Ucell/log-analyzer/config"
)

// options maps the run history settings onto driver options. CLICKHOUSE_URL
// may list several comma-separated host:port addresses.
func options(conf config.ClickHouseConfig) *clickhouse.Options {
	var addrs []string
	for _, addr := range strings.Split(conf.URL, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}

	opts := &clickhouse.Options{
		Addr: addrs,
		Auth: clickhouse.Auth{
			Database: conf.Database,
			Username: conf.Username,
			Password: conf.Password,
		},
		DialTimeout: conf.DialTimeout,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	}
	if conf.MaxExecutionTime > 0 {
		opts.Settings = clickhouse.Settings{"max_execution_time": conf.MaxExecutionTime}
	}
	return opts
}

// ConnectionCH opens and pings the run history cluster.
func ConnectionCH(ctx context.Context, conf config.ClickHouseConfig) (driver.Conn, error) {
	opts := options(conf)
	if len(opts.Addr) == 0 {
		return nil, fmt.Errorf("no ClickHouse address in %q", conf.URL)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse at %s: %w", strings.Join(opts.Addr, ","), err)
	}

	return conn, nil
}
