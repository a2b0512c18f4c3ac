package fluxion

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the runtime's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "fluxion").
	Namespace string

	// Subsystem is the metrics subsystem (default: "runtime").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for batch flush sizes.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures metrics collection.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithMetricsSubsystem sets the metrics subsystem.
func WithMetricsSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(reg prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = reg
	}
}

// WithFlushBuckets sets the histogram buckets for batch flush sizes.
func WithFlushBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

type runtimeMetrics struct {
	effectRuns   prometheus.Counter
	effectPanics prometheus.Counter
	computedRuns prometheus.Counter
	triggers     prometheus.Counter
	batchFlush   prometheus.Histogram
}

// metricsPtr holds the installed collectors; nil until EnableMetrics.
// Collection is opt-in so libraries embedding the runtime don't pollute
// the default registry.
var metricsPtr atomic.Pointer[runtimeMetrics]

// EnableMetrics installs Prometheus collectors for the runtime: effect
// runs and panics, computed recomputations, trigger notifications, and
// batch flush sizes. Call once at startup.
func EnableMetrics(opts ...MetricsOption) {
	cfg := &MetricsConfig{
		Namespace: "fluxion",
		Subsystem: "runtime",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	factory := promauto.With(cfg.Registry)

	m := &runtimeMetrics{
		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect body executions.",
			ConstLabels: cfg.ConstLabels,
		}),
		effectPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effect_panics_total",
			Help:        "Total number of recovered panics in effect bodies.",
			ConstLabels: cfg.ConstLabels,
		}),
		computedRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "computed_recomputes_total",
			Help:        "Total number of computed value recomputations.",
			ConstLabels: cfg.ConstLabels,
		}),
		triggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "triggers_total",
			Help:        "Total number of dependency change notifications.",
			ConstLabels: cfg.ConstLabels,
		}),
		batchFlush: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "batch_flush_listeners",
			Help:        "Distinct listeners notified per batch flush.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
	}

	metricsPtr.Store(m)
}

func countEffectRun() {
	if m := metricsPtr.Load(); m != nil {
		m.effectRuns.Inc()
	}
}

func countEffectPanic() {
	if m := metricsPtr.Load(); m != nil {
		m.effectPanics.Inc()
	}
}

func countComputedRun() {
	if m := metricsPtr.Load(); m != nil {
		m.computedRuns.Inc()
	}
}

func countTrigger() {
	if m := metricsPtr.Load(); m != nil {
		m.triggers.Inc()
	}
}

func observeBatchFlush(listeners int) {
	if m := metricsPtr.Load(); m != nil {
		m.batchFlush.Observe(float64(listeners))
	}
}
