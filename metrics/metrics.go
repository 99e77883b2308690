// Package metrics exposes Prometheus collectors for the sign-in flow.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sigle/sigle-auth"
)

const namespace = "sigle_auth"

// Metrics groups the collectors registered for one process
type Metrics struct {
	registry *prometheus.Registry

	denials      *prometheus.CounterVec
	signins      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	syncDuration *prometheus.HistogramVec
}

// New creates and registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "signin",
				Name:      "denials_total",
				Help:      "Sign-in attempts denied, by reason.",
			},
			[]string{"reason"},
		),
		signins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "signin",
				Name:      "events_total",
				Help:      "Sign-in activity events, by type.",
			},
			[]string{"event"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "result"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "loginsync",
				Name:      "request_duration_seconds",
				Help:      "Duration of identity-sync calls.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11),
			},
			[]string{"success"},
		),
	}

	m.registry.MustRegister(
		m.denials,
		m.signins,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.syncDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Report implements auth.DiagnosticsReporter by counting denials
func (m *Metrics) Report(_ context.Context, d auth.Diagnostic) {
	reason := string(d.Reason)
	if reason == "" {
		reason = "unknown"
	}
	m.denials.WithLabelValues(reason).Inc()
}

// Record implements auth.ActivitySink
func (m *Metrics) Record(_ context.Context, event auth.ActivityEvent) error {
	m.signins.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Middleware records request counts and latency for router handlers
func (m *Metrics) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			start := time.Now()
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			err := next(ctx)

			method := ctx.Method()
			path := ctx.Path()
			result := "ok"
			if err != nil {
				result = "error"
			}

			m.httpRequests.WithLabelValues(method, path, result).Inc()
			m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveSync wraps an IdentitySyncer so each call is timed
func (m *Metrics) ObserveSync(next auth.IdentitySyncer) auth.IdentitySyncer {
	return syncObserver{next: next, hist: m.syncDuration}
}

type syncObserver struct {
	next auth.IdentitySyncer
	hist *prometheus.HistogramVec
}

func (o syncObserver) SyncUser(ctx context.Context, address string) (string, error) {
	start := time.Now()
	id, err := o.next.SyncUser(ctx, address)
	success := "true"
	if err != nil {
		success = "false"
	}
	o.hist.WithLabelValues(success).Observe(time.Since(start).Seconds())
	return id, err
}

// Serve runs a dedicated metrics listener until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
