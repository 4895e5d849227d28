package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giantswarm/locksmith/internal/reconciler"
	"github.com/giantswarm/locksmith/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 30 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	shutdownTimeout = 5 * time.Second
)

// StatusSource reports the engine state served on /healthz.
// *reconciler.Engine satisfies it.
type StatusSource interface {
	Summary() reconciler.Summary
}

// HealthServer answers liveness probes from hosting platforms and serves
// Prometheus metrics.
type HealthServer struct {
	addr     string
	status   StatusSource
	gatherer prometheus.Gatherer
	started  time.Time
}

// New returns a HealthServer listening on addr once Run is called.
func New(addr string, status StatusSource, gatherer prometheus.Gatherer) *HealthServer {
	return &HealthServer{addr: addr, status: status, gatherer: gatherer, started: time.Now()}
}

type healthResponse struct {
	Status string             `json:"status"`
	Uptime string             `json:"uptime"`
	Engine reconciler.Summary `json:"engine"`
}

// Handler returns the server's routes.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "locksmith is running")
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Uptime: time.Since(s.started).Truncate(time.Second).String(),
			Engine: s.status.Summary(),
		}
		if !resp.Engine.Attached {
			resp.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.Warn("Server", "Encoding health response: %v", err)
		}
	})

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HealthServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown health server: %w", err)
	}
	return nil
}
