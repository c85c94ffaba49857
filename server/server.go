// Package server exposes bargain search over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bargain-hunter/metrics"
	"bargain-hunter/models"
	"bargain-hunter/utils"
)

const maxBodyBytes = 1 << 20

// Searcher runs a bargain search for normalised params.
type Searcher interface {
	Run(ctx context.Context, params models.SearchParams) (*models.SearchResult, error)
}

// Options configures the HTTP server.
type Options struct {
	Port       int
	CORSOrigin string
	Searcher   Searcher
	Metrics    *metrics.Metrics
	Logger     *utils.Logger
}

// New builds the HTTP server with all routes and middleware.
func New(opts Options) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      Handler(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Handler returns the routed and wrapped handler.
func Handler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/search", handleSearch(opts.Searcher, opts.Logger))
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	return Chain(mux,
		Recover(opts.Logger),
		RequestLogger(opts.Logger),
		CORS(opts.CORSOrigin),
		OTel("bargain-api"),
	)
}

// Run serves srv until ctx is done, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *utils.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[http] API server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("[http] Shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleSearch(searcher Searcher, logger *utils.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			logger.Warn("[http] /api/search read body: %v", err)
			writeError(w, http.StatusBadRequest, "Invalid request")
			return
		}

		params, err := models.DecodeSearchRequest(body)
		if err != nil {
			logger.Warn("[http] /api/search rejected: %v", err)
			writeError(w, http.StatusBadRequest, "Invalid request")
			return
		}

		result, err := searcher.Run(r.Context(), params)
		if err != nil {
			logger.Error("[http] /api/search failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
