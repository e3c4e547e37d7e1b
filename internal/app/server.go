package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"colstore-go/internal/redact"
)

const shutdownTimeout = 30 * time.Second

type healthResponse struct {
	Status     string     `json:"status"`
	InProgress bool       `json:"in_progress"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

type passResponse struct {
	Collections int    `json:"collections"`
	Added       int    `json:"added"`
	Modified    int    `json:"modified"`
	Deleted     int    `json:"deleted"`
	Error       string `json:"error,omitempty"`
}

// NewRouter exposes the watcher over HTTP:
//
//	GET  /healthz    liveness plus the state of the last pass
//	GET  /metrics    Prometheus exposition
//	POST /reconcile  run a pass now (409 if one is running)
func NewRouter(w *Watcher, r redact.Redactor) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok", InProgress: w.InProgress()}
		if last := w.LastPass(); last != nil {
			started := last.StartedAt
			resp.LastRun = &started
			if last.Err != nil {
				resp.Status = "degraded"
				resp.LastError = r.Redact(last.Err.Error())
			}
		}
		writeJSON(rw, http.StatusOK, resp)
	})

	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Post("/reconcile", func(rw http.ResponseWriter, req *http.Request) {
		report, skipped := w.RunOnce(req.Context())
		if skipped {
			writeJSON(rw, http.StatusConflict, map[string]string{"error": "reconciliation already running"})
			return
		}
		resp := passResponse{
			Collections: report.Collections,
			Added:       report.Added,
			Modified:    report.Modified,
			Deleted:     report.Deleted,
		}
		status := http.StatusOK
		if report.Err != nil {
			resp.Error = r.Redact(report.Err.Error())
			status = http.StatusMultiStatus
		}
		writeJSON(rw, status, resp)
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return serveListener(ctx, ln, handler, logger)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
