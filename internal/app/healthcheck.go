package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/loop"
)

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remoteAddr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler reports which quantities and measurables are held by active
// runs, keyed by run ID.
func statusHandler(engine *loop.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":  engine.Active(),
			"targets": engine.Locks().Snapshot(),
		})
	}
}

// healthCheckServer wraps the HTTP server exposing /health and /status.
type healthCheckServer struct {
	srv *http.Server
	ln  net.Listener
}

// newHealthCheckServer binds the listener synchronously so port conflicts are
// reported before the run starts.
func (a *App) newHealthCheckServer(ctx context.Context, port int, engine *loop.Engine) (*healthCheckServer, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/status", statusHandler(engine))

	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health check server: %w", err)
	}
	logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
	return &healthCheckServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// serve blocks until the server is shut down.
func (h *healthCheckServer) serve() error {
	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health check server failed unexpectedly: %w", err)
	}
	return nil
}

func (h *healthCheckServer) close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := h.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Health check server shut down gracefully.")
	return nil
}
