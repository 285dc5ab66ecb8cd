package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/model"
)

type runRow struct {
	ID        int64     `ch:"id"`
	Label     string    `ch:"label"`
	Source    string    `ch:"source"`
	Total     int64     `ch:"total"`
	Errors    int64     `ch:"errors"`
	ErrorPct  float64   `ch:"error_pct"`
	Avg       float64   `ch:"avg"`
	P50       float64   `ch:"p50"`
	P90       float64   `ch:"p90"`
	P99       float64   `ch:"p99"`
	Lines     int64     `ch:"lines"`
	Dropped   int64     `ch:"dropped"`
	Malformed int64     `ch:"malformed"`
	CreatedAt time.Time `ch:"created_at"`
}

func fromRun(run *model.Run) runRow {
	s := run.Summary
	return runRow{
		ID:        run.ID,
		Label:     run.Label,
		Source:    run.Source,
		Total:     int64(s.Total),
		Errors:    int64(s.Errors),
		ErrorPct:  s.ErrorPct,
		Avg:       s.Avg,
		P50:       s.P50,
		P90:       s.P90,
		P99:       s.P99,
		Lines:     int64(run.Lines),
		Dropped:   int64(run.Dropped),
		Malformed: int64(run.Malformed),
		CreatedAt: run.CreatedAt,
	}
}

func (r runRow) toRun() model.Run {
	return model.Run{
		ID:     r.ID,
		Label:  r.Label,
		Source: r.Source,
		Summary: model.Summary{
			Total:    int(r.Total),
			Errors:   int(r.Errors),
			ErrorPct: r.ErrorPct,
			Avg:      r.Avg,
			P50:      r.P50,
			P90:      r.P90,
			P99:      r.P99,
		},
		Lines:     int(r.Lines),
		Dropped:   int(r.Dropped),
		Malformed: int(r.Malformed),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type RunRepository struct {
	Conn  driver.Conn
	Log   *zap.SugaredLogger
	Table string
}

func NewRunRepository(conn driver.Conn, log *zap.SugaredLogger, table string) *RunRepository {
	return &RunRepository{Conn: conn, Log: log, Table: table}
}

func (r *RunRepository) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          Int64,
			label       LowCardinality(String),
			source      String,
			total       Int64,
			errors      Int64,
			error_pct   Float64,
			avg         Float64,
			p50         Float64,
			p90         Float64,
			p99         Float64,
			lines       Int64,
			dropped     Int64,
			malformed   Int64,
			created_at  DateTime64(9, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (label, created_at)
	`, r.Table)

	if err := r.Conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.Table, err)
	}

	return nil
}

// InsertRun stores run. ClickHouse has no sequences, so the ID is the
// creation time in nanoseconds.
func (r *RunRepository) InsertRun(ctx context.Context, run *model.Run) error {
	if run.ID == 0 {
		run.ID = run.CreatedAt.UnixNano()
	}

	batch, err := r.Conn.PrepareBatch(ctx, "INSERT INTO "+r.Table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	row := fromRun(run)
	if err := batch.AppendStruct(&row); err != nil {
		return fmt.Errorf("failed to append run to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

func (r *RunRepository) GetRuns(ctx context.Context, label string, limit int, offset int) ([]model.Run, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE (? = '' OR label = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, r.Table)

	var rows []runRow
	if err := r.Conn.Select(ctx, &rows, query, label, label, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs := make([]model.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}
	return runs, nil
}

func (r *RunRepository) GetLatestRun(ctx context.Context, label string) (model.Run, error) {
	runs, err := r.GetRuns(ctx, label, 1, 0)
	if err != nil {
		return model.Run{}, err
	}
	if label == "" || len(runs) == 0 {
		return model.Run{}, fmt.Errorf("label %q: %w", label, repo.ErrNotFound)
	}
	return runs[0], nil
}

func (r *RunRepository) DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := fmt.Sprintf(`ALTER TABLE %s DELETE WHERE created_at < ?`, r.Table)

	if err := r.Conn.Exec(ctx, query, cutoffTime); err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	// Mutations run asynchronously; the affected row count is unknown.
	return 0, nil
}
