package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/memogrid/internal/executor"
)

// healthHandler answers liveness probes and logs each hit.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// runsHandler serves a JSON snapshot of every task's state and phase.
func (a *App) runsHandler(exec *executor.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Runs endpoint hit.", "remote_addr", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(exec.Snapshot()); err != nil {
			a.logger.Error("Failed to encode runs snapshot", "error", err)
		}
	}
}

// startStatusServer runs the status HTTP server in the background and
// returns a function that shuts it down gracefully.
func (a *App) startStatusServer(port int, exec *executor.Executor) func() {
	a.logger.Debug("Configuring status server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.healthHandler)
	mux.HandleFunc("/runs", a.runsHandler(exec))

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		a.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/healthz", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown. We
		// check for it to avoid logging a false positive.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		a.logger.Debug("Shutting down status server...")
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("Status server shutdown failed", "error", err)
		}
	}
}
