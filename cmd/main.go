package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/config"
	"github.com/Ucell/log-analyzer/db"
	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/logs"
	"github.com/Ucell/log-analyzer/metrics"
	"github.com/Ucell/log-analyzer/model"
	"github.com/Ucell/log-analyzer/processor"
	"github.com/Ucell/log-analyzer/report"
	"github.com/Ucell/log-analyzer/server"
)

const usage = `usage:
  analyzer [-label L] [-compare BASE] [-skip-malformed] <logfile>
  analyzer serve
  analyzer prune -older-than DURATION
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logger, err := logs.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return serve(cfg, logger)
		case "prune":
			return prune(cfg, logger, args[1:], stderr)
		}
	}
	return analyze(cfg, logger, args, stdout, stderr)
}

func analyze(cfg *config.Config, logger *zap.SugaredLogger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	label := fs.String("label", cfg.Report.Label, "label printed in the report header")
	compare := fs.String("compare", "", "label of a stored run to compare against")
	skipMalformed := fs.Bool("skip-malformed", cfg.Report.SkipMalformed, "count and skip lines with malformed numbers")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return 1
	}
	if len(positional) != 1 {
		fs.Usage()
		return 1
	}
	path := positional[0]

	ctx := context.Background()

	var runStore repo.ISummaryStorage
	if cfg.Storage.Driver != config.DriverNone {
		storage, err := db.NewStorage(ctx, cfg, logger)
		if err != nil {
			logger.Errorw("failed to open run storage", "error", err, "driver", cfg.Storage.Driver)
			return 1
		}
		defer storage.Close()
		runStore = storage.Runs()
	}

	pipeline := processor.NewPipeline(runStore, logger, processor.Options{
		SkipMalformed: *skipMalformed,
		MaxRetries:    cfg.Storage.MaxRetries,
		RetryBackoff:  cfg.Storage.RetryBackoff,
	})

	// The baseline is loaded first so a run stored under the same label
	// does not compare against itself.
	var baseline model.Run
	if *compare != "" {
		b, err := pipeline.Baseline(ctx, *compare)
		if err != nil {
			logger.Errorw("failed to load baseline", "error", err, "label", *compare)
			return 1
		}
		baseline = b
	}

	result, err := pipeline.Run(ctx, path, *label)
	status := 0
	switch {
	case errors.Is(err, processor.ErrNotStored):
		logger.Errorw("run not persisted", "error", err, "label", *label)
		status = 1
	case err != nil:
		logger.Errorw("analysis failed", "error", err, "source", path)
		return 1
	}

	if werr := report.Write(stdout, *label, result.Summary); werr != nil {
		logger.Errorw("failed to write report", "error", werr)
		return 1
	}
	if *compare != "" {
		fmt.Fprintln(stdout)
		if werr := report.WriteComparison(stdout, baseline, result); werr != nil {
			logger.Errorw("failed to write comparison", "error", werr)
			return 1
		}
	}

	if cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Errorw("failed to write metrics textfile", "error", werr, "path", cfg.Metrics.Textfile)
			return 1
		}
	}
	return status
}

func serve(cfg *config.Config, logger *zap.SugaredLogger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := db.NewStorage(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("failed to open run storage", "error", err, "driver", cfg.Storage.Driver)
		return 1
	}
	defer storage.Close()

	httpServer := server.NewServer(storage.Runs(), logger, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Errorw("http server error", "error", err)
			return 1
		}
		return 0
	}

	if err := shutdown(httpServer, cancel, 10*time.Second); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
		return 1
	}
	if err := <-errCh; err != nil {
		logger.Errorw("http server error", "error", err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

func prune(cfg *config.Config, logger *zap.SugaredLogger, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	olderThan := fs.Duration("older-than", 0, "delete runs created before now minus this duration")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *olderThan <= 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	ctx := context.Background()
	storage, err := db.NewStorage(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("failed to open run storage", "error", err, "driver", cfg.Storage.Driver)
		return 1
	}
	defer storage.Close()

	n, err := storage.Runs().DeleteOldRuns(ctx, *olderThan)
	if err != nil {
		logger.Errorw("failed to prune runs", "error", err)
		return 1
	}
	logger.Infow("runs pruned", "deleted", n, "older_than", olderThan.String())
	return 0
}

type stopper interface {
	Stop(ctx context.Context) error
}

// shutdown stops s within timeout and only then cancels the base context,
// so requests in flight can finish.
func shutdown(s stopper, cancelBase context.CancelFunc, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer cancelBase()
	return s.Stop(ctx)
}

// parseInterspersed accepts flags before and after positional arguments.
// Everything after a "--" terminator is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}
