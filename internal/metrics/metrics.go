// Package metrics exposes pipeline counters and gauges for Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers never guard
// against a disabled listener.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vodbridge/internal/logging"
)

const namespace = "vodbridge"

// Upload outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeQuota     = "quota"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	cycles         prometheus.Counter
	uploads        *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	uploadDuration prometheus.Histogram
	vodRefreshes   *prometheus.CounterVec
	ledgerEntries  prometheus.Gauge
	quotaPaused    prometheus.Gauge
	lastCycle      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles completed.",
		}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"outcome"}),
		uploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes of completed uploads.",
		}),
		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Wall time of completed uploads.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 10),
		}),
		vodRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vod_refresh_total",
			Help:      "VOD cache refreshes by result.",
		}, []string{"result"}),
		ledgerEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_entries",
			Help:      "Uploads currently recorded as in flight.",
		}),
		quotaPaused: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_paused",
			Help:      "1 while the pipeline waits for the quota reset.",
		}),
		lastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed poll cycle.",
		}),
	}
}

// CycleCompleted records the end of a poll cycle.
func (m *Metrics) CycleCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.lastCycle.Set(float64(at.Unix()))
}

// UploadCompleted records a finished upload.
func (m *Metrics) UploadCompleted(size int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(OutcomeCompleted).Inc()
	if size > 0 {
		m.uploadedBytes.Add(float64(size))
	}
	m.uploadDuration.Observe(elapsed.Seconds())
}

// UploadFailed records an abandoned upload.
func (m *Metrics) UploadFailed() {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(OutcomeFailed).Inc()
}

// QuotaPaused records entering or leaving the quota wait.
func (m *Metrics) QuotaPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.uploads.WithLabelValues(OutcomeQuota).Inc()
		m.quotaPaused.Set(1)
		return
	}
	m.quotaPaused.Set(0)
}

// VODRefresh records a cache refresh attempt outcome.
func (m *Metrics) VODRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.vodRefreshes.WithLabelValues(result).Inc()
}

// LedgerEntries sets the in-flight gauge.
func (m *Metrics) LedgerEntries(n int) {
	if m == nil {
		return
	}
	m.ledgerEntries.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on bind until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", bind, err)
	}
	return m.serve(ctx, listener, logger)
}

func (m *Metrics) serve(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	logger.Info("metrics listener started", logging.String("address", listener.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics serve: %w", err)
	}
}
