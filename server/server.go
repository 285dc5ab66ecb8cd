package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Ucell/log-analyzer/config"
	"github.com/Ucell/log-analyzer/db/repo"
	"github.com/Ucell/log-analyzer/metrics"
	"github.com/Ucell/log-analyzer/model"
)

// Server exposes stored runs read-only over HTTP.
type Server struct {
	storage repo.ISummaryStorage
	logger  *zap.SugaredLogger
	config  *config.Config
	server  *http.Server
}

func NewServer(storage repo.ISummaryStorage, logger *zap.SugaredLogger, cfg *config.Config) *Server {
	return &Server{
		storage: storage,
		logger:  logger,
		config:  cfg,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(s.config.Server.HealthPath, s.healthHandler)
	mux.HandleFunc("/runs", s.runsHandler)
	mux.HandleFunc("/runs/latest", s.latestHandler)
	mux.Handle(s.config.Metrics.Path, metrics.Handler())

	return mux
}

// Start blocks until the server stops. It returns nil after Stop.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	s.logger.Infow("starting HTTP server", "port", s.config.Server.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	runs, err := s.storage.GetRuns(r.Context(), r.URL.Query().Get("label"), limit, offset)
	if err != nil {
		s.logger.Errorw("failed to list runs", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}

	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) latestHandler(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}

	run, err := s.storage.GetLatestRun(r.Context(), label)
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Errorw("failed to load latest run", "error", err, "label", label)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
