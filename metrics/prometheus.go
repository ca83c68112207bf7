// Package metrics provides Prometheus instrumentation for the admission
// engine.
//
// Attach a Collector through the engine's observer hook:
//
//	collector := metrics.NewCollector()
//	engine, _ := rategate.New(st, rategate.WithObserver(collector))
//
// All metrics are partitioned by strategy name. Decision counts carry an
// additional "decision" label (allowed / rejected).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metric vectors. It implements
// rategate.Observer.
type Collector struct {
	decisions   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeErrors *prometheus.CounterVec
}

type collectorConfig struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer
	buckets   []float64
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

// WithNamespace sets the Prometheus metric namespace (prefix).
func WithNamespace(ns string) CollectorOption {
	return func(c *collectorConfig) { c.namespace = ns }
}

// WithSubsystem sets the Prometheus metric subsystem.
func WithSubsystem(sub string) CollectorOption {
	return func(c *collectorConfig) { c.subsystem = sub }
}

// WithRegistry registers metrics with the given Registerer instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) CollectorOption {
	return func(c *collectorConfig) { c.registry = r }
}

// WithBuckets sets custom histogram buckets for check duration.
func WithBuckets(b []float64) CollectorOption {
	return func(c *collectorConfig) { c.buckets = b }
}

var defaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// NewCollector creates a Collector and registers its metrics.
//
// Metrics registered:
//   - {namespace}_decisions_total          counter   (strategy, decision)
//   - {namespace}_check_duration_seconds   histogram (strategy)
//   - {namespace}_store_errors_total       counter   (strategy)
//
// Default namespace is "rategate".
func NewCollector(opts ...CollectorOption) *Collector {
	cfg := &collectorConfig{
		namespace: "rategate",
		registry:  prometheus.DefaultRegisterer,
		buckets:   defaultBuckets,
	}
	for _, o := range opts {
		o(cfg)
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "decisions_total",
		Help:      "Total admission checks partitioned by strategy and decision.",
	}, []string{"strategy", "decision"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "check_duration_seconds",
		Help:      "Latency of admission checks in seconds, store round trips included.",
		Buckets:   cfg.buckets,
	}, []string{"strategy"})

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "store_errors_total",
		Help:      "Total counter store failures resolved through the failure policy.",
	}, []string{"strategy"})

	cfg.registry.MustRegister(decisions, duration, storeErrors)

	return &Collector{
		decisions:   decisions,
		duration:    duration,
		storeErrors: storeErrors,
	}
}

// Decision implements rategate.Observer.
func (c *Collector) Decision(strategy string, allowed bool, elapsed time.Duration) {
	decision := "rejected"
	if allowed {
		decision = "allowed"
	}
	c.decisions.WithLabelValues(strategy, decision).Inc()
	c.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// StoreError implements rategate.Observer.
func (c *Collector) StoreError(strategy string) {
	c.storeErrors.WithLabelValues(strategy).Inc()
}
