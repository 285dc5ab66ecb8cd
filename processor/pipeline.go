package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/analyzer"
	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/metrics"
	"github.com/Ucell/log-analyzer/model"
	"github.com/Ucell/log-analyzer/parser"
)

// ErrNotStored marks a completed analysis whose run could not be persisted.
var ErrNotStored = errors.New("run not stored")

// Pipeline turns one access log into a labeled summary.
type Pipeline struct {
	storage       repo.ISummaryStorage
	logger        *zap.SugaredLogger
	skipMalformed bool
	maxRetries    int
	retryBackoff  time.Duration

	now func() time.Time
}

type Options struct {
	SkipMalformed bool
	MaxRetries    int
	RetryBackoff  time.Duration
}

// NewPipeline returns a pipeline. storage may be nil, in which case runs
// are not persisted.
func NewPipeline(storage repo.ISummaryStorage, logger *zap.SugaredLogger, opts Options) *Pipeline {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &Pipeline{
		storage:       storage,
		logger:        logger,
		skipMalformed: opts.SkipMalformed,
		maxRetries:    opts.MaxRetries,
		retryBackoff:  opts.RetryBackoff,
		now:           time.Now,
	}
}

// Run analyzes the log at path. When storage is configured the run is
// persisted; a storage failure is returned together with the completed
// run so the caller can still report it.
func (p *Pipeline) Run(ctx context.Context, path, label string) (model.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	start := p.now()
	res, err := parser.ParseReader(f, parser.Options{
		SkipMalformed: p.skipMalformed,
		OnLine:        observeLine,
	})
	if err != nil {
		return model.Run{}, fmt.Errorf("%s: %w", path, err)
	}

	summary := analyzer.Summarize(res.Records)
	metrics.ObserveSummary(label, summary)

	run := model.Run{
		Label:     label,
		Source:    path,
		Summary:   summary,
		Lines:     res.Lines,
		Dropped:   res.Dropped,
		Malformed: res.Malformed,
		CreatedAt: p.now().UTC(),
	}

	p.logger.Infow("log analyzed",
		"label", label,
		"source", path,
		"lines", res.Lines,
		"parsed", summary.Total,
		"dropped", res.Dropped,
		"malformed", res.Malformed,
		"elapsed", p.now().Sub(start))

	if p.storage == nil {
		return run, nil
	}
	if err := p.storeWithRetry(ctx, &run); err != nil {
		return run, err
	}
	return run, nil
}

// Baseline returns the most recent stored run for label.
func (p *Pipeline) Baseline(ctx context.Context, label string) (model.Run, error) {
	if p.storage == nil {
		return model.Run{}, fmt.Errorf("comparison needs run storage; set STORAGE_DRIVER")
	}
	return p.storage.GetLatestRun(ctx, label)
}

func observeLine(o parser.Outcome, rec model.Record) {
	metrics.LinesRead.WithLabelValues(o.String()).Inc()
	if o == parser.Matched {
		metrics.ResponseTime.Observe(rec.ResponseTime)
	}
}

func (p *Pipeline) storeWithRetry(ctx context.Context, run *model.Run) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		start := time.Now()
		err := p.storage.InsertRun(ctx, run)
		if err == nil {
			metrics.StoreDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
			p.logger.Infow("run stored",
				"id", run.ID,
				"label", run.Label,
				"attempt", attempt)
			return nil
		}
		metrics.StoreDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		lastErr = err

		p.logger.Errorw("failed to store run",
			"error", err,
			"attempt", attempt,
			"label", run.Label)

		if attempt < p.maxRetries {
			backoff := time.Duration(attempt) * p.retryBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: aborted: %w", ErrNotStored, ctx.Err())
			}
		}
	}

	p.logger.Errorw("failed to store run after all retries",
		"label", run.Label,
		"max_retries", p.maxRetries)
	return fmt.Errorf("%w after %d attempts: %w", ErrNotStored, p.maxRetries, lastErr)
}
