package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/model"
)

func newTestRepository(t *testing.T) *RunRepository {
	t.Helper()
	db, err := Connection(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Connection error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := NewRunRepository(db, zap.NewNop().Sugar())
	if err := r.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable error: %v", err)
	}
	// Idempotent.
	if err := r.CreateTable(context.Background()); err != nil {
		t.Fatalf("second CreateTable error: %v", err)
	}
	return r
}

func makeRun(label string, created time.Time, p99 float64) model.Run {
	return model.Run{
		Label:     label,
		Source:    "/var/log/nginx/" + label + ".log",
		Summary:   model.Summary{Total: 3, Errors: 1, ErrorPct: 100.0 / 3, Avg: 0.7 / 3, P50: 0.2, P90: 0.36, P99: p99},
		Lines:     4,
		Dropped:   1,
		CreatedAt: created,
	}
}

func TestInsertAndGetLatestRun(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	base := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	for i, p99 := range []float64{0.5, 0.6, 0.7} {
		run := makeRun("before", base.Add(time.Duration(i)*time.Minute), p99)
		if err := r.InsertRun(ctx, &run); err != nil {
			t.Fatalf("InsertRun error: %v", err)
		}
		if run.ID == 0 {
			t.Error("InsertRun did not set ID")
		}
	}
	other := makeRun("after", base.Add(time.Hour), 0.1)
	if err := r.InsertRun(ctx, &other); err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}

	latest, err := r.GetLatestRun(ctx, "before")
	if err != nil {
		t.Fatalf("GetLatestRun error: %v", err)
	}
	if latest.Summary.P99 != 0.7 {
		t.Errorf("latest P99 = %v, want 0.7", latest.Summary.P99)
	}
	if !latest.CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v", latest.CreatedAt)
	}
	want := makeRun("before", latest.CreatedAt, 0.7)
	want.ID = latest.ID
	if latest != want {
		t.Errorf("round trip mismatch\ngot  %+v\nwant %+v", latest, want)
	}
}

func TestGetLatestRunNotFound(t *testing.T) {
	r := newTestRepository(t)
	_, err := r.GetLatestRun(context.Background(), "missing")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetRuns(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	base := time.Now().UTC()

	for i, label := range []string{"a", "b", "a", "a"} {
		run := makeRun(label, base.Add(time.Duration(i)*time.Second), float64(i))
		if err := r.InsertRun(ctx, &run); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		label   string
		limit   int
		offset  int
		wantP99 []float64
	}{
		{"all labels", "", 10, 0, []float64{3, 2, 1, 0}},
		{"label filter", "a", 10, 0, []float64{3, 2, 0}},
		{"limit", "a", 2, 0, []float64{3, 2}},
		{"offset", "a", 2, 1, []float64{2, 0}},
		{"unknown label", "zzz", 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := r.GetRuns(ctx, tt.label, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("GetRuns error: %v", err)
			}
			if len(runs) != len(tt.wantP99) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.wantP99))
			}
			for i, run := range runs {
				if run.Summary.P99 != tt.wantP99[i] {
					t.Errorf("runs[%d].P99 = %v, want %v", i, run.Summary.P99, tt.wantP99[i])
				}
			}
		})
	}
}

func TestDeleteOldRuns(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	old := makeRun("old", time.Now().Add(-48*time.Hour), 1)
	fresh := makeRun("fresh", time.Now(), 1)
	for _, run := range []*model.Run{&old, &fresh} {
		if err := r.InsertRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	n, err := r.DeleteOldRuns(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldRuns error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d runs, want 1", n)
	}
	runs, err := r.GetRuns(ctx, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Label != "fresh" {
		t.Errorf("remaining runs = %+v", runs)
	}
}
