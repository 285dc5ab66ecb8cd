package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Ucell/log-analyzer/model"
)

// ErrNotFound is returned when no stored run matches a query.
var ErrNotFound = errors.New("run not found")

type ISummaryStorage interface {
	CreateTable(ctx context.Context) error
	InsertRun(ctx context.Context, run *model.Run) error
	GetRuns(ctx context.Context, label string, limit int, offset int) ([]model.Run, error)
	GetLatestRun(ctx context.Context, label string) (model.Run, error)
	DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}
