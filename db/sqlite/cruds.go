package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/model"
)

const runColumns = `id, label, source, total, errors, error_pct, avg, p50, p90, p99, lines, dropped, malformed, created_at`

type RunRepository struct {
	DB  *sql.DB
	Log *zap.SugaredLogger
}

func NewRunRepository(db *sql.DB, log *zap.SugaredLogger) *RunRepository {
	return &RunRepository{DB: db, Log: log}
}

func (r *RunRepository) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			label      TEXT NOT NULL,
			source     TEXT NOT NULL,
			total      INTEGER NOT NULL,
			errors     INTEGER NOT NULL,
			error_pct  REAL NOT NULL,
			avg        REAL NOT NULL,
			p50        REAL NOT NULL,
			p90        REAL NOT NULL,
			p99        REAL NOT NULL,
			lines      INTEGER NOT NULL,
			dropped    INTEGER NOT NULL,
			malformed  INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`

	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS runs_label_created ON runs (label, created_at)`
	if _, err := r.DB.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create runs index: %w", err)
	}

	return nil
}

// InsertRun stores run and sets its ID.
func (r *RunRepository) InsertRun(ctx context.Context, run *model.Run) error {
	query := `
		INSERT INTO runs (label, source, total, errors, error_pct, avg, p50, p90, p99, lines, dropped, malformed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	s := run.Summary
	res, err := r.DB.ExecContext(ctx, query,
		run.Label,
		run.Source,
		s.Total,
		s.Errors,
		s.ErrorPct,
		s.Avg,
		s.P50,
		s.P90,
		s.P99,
		run.Lines,
		run.Dropped,
		run.Malformed,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	run.ID = id

	return nil
}

// GetRuns lists runs newest first. An empty label matches every run.
func (r *RunRepository) GetRuns(ctx context.Context, label string, limit int, offset int) ([]model.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE (? = '' OR label = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.DB.QueryContext(ctx, query, label, label, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Errorw("error while closing rows", "error", err)
		}
	}()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) GetLatestRun(ctx context.Context, label string) (model.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE label = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	run, err := scanRun(r.DB.QueryRowContext(ctx, query, label))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, fmt.Errorf("label %q: %w", label, repo.ErrNotFound)
	}
	return run, err
}

func (r *RunRepository) DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	res, err := r.DB.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoffTime.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.Run, error) {
	var run model.Run
	var createdAt int64
	s := &run.Summary
	err := row.Scan(
		&run.ID,
		&run.Label,
		&run.Source,
		&s.Total,
		&s.Errors,
		&s.ErrorPct,
		&s.Avg,
		&s.P50,
		&s.P90,
		&s.P99,
		&run.Lines,
		&run.Dropped,
		&run.Malformed,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, err
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to scan run row: %w", err)
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}
