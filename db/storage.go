package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/config"
	"github.com/Ucell/log-analyzer/db/clickhouse"
	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/db/sqlite"
)

type IStorage interface {
	Runs() repo.ISummaryStorage
	Close() error
}

type databaseStorage struct {
	runs  repo.ISummaryStorage
	close func() error
}

// NewStorage connects to the configured run history backend and makes
// sure its table exists. It fails for the "none" driver.
func NewStorage(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (IStorage, error) {
	var s *databaseStorage

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		conn, err := sqlite.Connection(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		s = &databaseStorage{runs: sqlite.NewRunRepository(conn, log), close: conn.Close}
	case config.DriverClickHouse:
		conn, err := clickhouse.ConnectionCH(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, err
		}
		s = &databaseStorage{runs: clickhouse.NewRunRepository(conn, log, cfg.ClickHouse.Table), close: conn.Close}
	default:
		return nil, fmt.Errorf("storage driver %q has no backend", cfg.Storage.Driver)
	}

	if err := s.runs.CreateTable(ctx); err != nil {
		s.Close()
		return nil, err
	}

	log.Infow("run storage ready", "driver", cfg.Storage.Driver)
	return s, nil
}

func (p *databaseStorage) Runs() repo.ISummaryStorage {
	return p.runs
}

func (p *databaseStorage) Close() error {
	return p.close()
}
