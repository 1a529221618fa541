// Package metrics exposes the daemon's Prometheus instrumentation: a
// reconciliation-duration histogram, an active-session gauge, and a
// cleanup-removed counter, served over an opt-in loopback HTTP listener.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "summd_reconcile_duration_seconds",
		Help:    "Duration of one reconciliation sweep across all known sessions.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "summd_active_sessions",
		Help: "Number of sessions currently tracked, by effective status.",
	}, []string{"status"})

	cleanupRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summd_cleanup_removed_total",
		Help: "Total number of sessions removed by the retention cleanup task.",
	}, []string{})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "summd_requests_total",
		Help: "Total requests handled, by request type and outcome.",
	}, []string{"type", "outcome"})
)

// ObserveReconcile records one reconciliation sweep's wall-clock duration.
func ObserveReconcile(d time.Duration) {
	reconcileDuration.WithLabelValues().Observe(d.Seconds())
}

// SetActiveSessions updates the active-session gauge for one status value.
// The caller (the reconciliation task) is expected to call this once per
// status after each sweep, so stale labels fall to zero rather than
// lingering at their last observed count.
func SetActiveSessions(status string, count int) {
	activeSessions.WithLabelValues(status).Set(float64(count))
}

// IncCleanupRemoved adds n to the cleanup-removed counter.
func IncCleanupRemoved(n int) {
	if n <= 0 {
		return
	}
	cleanupRemoved.WithLabelValues().Add(float64(n))
}

// ObserveRequest records the outcome of one dispatched request.
func ObserveRequest(requestType, outcome string) {
	requestsTotal.WithLabelValues(requestType, outcome).Inc()
}

// Server serves /metrics on a loopback address. It is a no-op wrapper
// when disabled, so callers can always construct and Start/Stop one
// without branching on configuration.
type Server struct {
	enabled bool
	addr    string
	http    *http.Server
}

// New builds a metrics Server. Pass enabled=false to get an inert server
// whose Start/Stop are no-ops, matching the config's metrics.enabled flag.
func New(enabled bool, listenAddr string) *Server {
	return &Server{enabled: enabled, addr: listenAddr}
}

// Start begins serving /metrics in the background. Returns immediately;
// listen errors surface through the returned error only for the initial
// bind, not for later runtime failures.
func (s *Server) Start() error {
	if !s.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics: listening on %s: %w", s.addr, err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the metrics listener, if running.
func (s *Server) Stop(ctx context.Context) error {
	if !s.enabled || s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
