// Package metrics exports compile and criteria evaluation counters to
// Prometheus. A Collector is both a sheet.CompileLogger and a
// sheet.EvaluatorLogger.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	sheet "github.com/goliatone/go-sheet"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace  = "sheet"
	compileSubsystem  = "compile"
	criteriaSubsystem = "criteria"
)

// Compile outcomes used as the outcome label.
const (
	OutcomeCompiled = "compiled"
	OutcomeCyclic   = "cyclic_dependency"
	OutcomeError    = "error"
)

// Option configures a Collector.
type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
}

// WithNamespace overrides the metric namespace.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if ns := strings.TrimSpace(namespace); ns != "" {
			o.namespace = ns
		}
	}
}

// WithBuckets overrides the duration histogram buckets, in seconds.
func WithBuckets(buckets ...float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Collector records compile and evaluation events.
type Collector struct {
	compiles          *prometheus.CounterVec
	compileDuration   prometheus.Histogram
	mutators          prometheus.Counter
	diagnostics       prometheus.Counter
	missingSelections prometheus.Counter
	evaluations       *prometheus.CounterVec
	evalDuration      *prometheus.HistogramVec
}

// New builds a Collector and registers its metrics on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	cfg := options{
		namespace: defaultNamespace,
		buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: compileSubsystem,
			Name:      "total",
			Help:      "Character compiles by outcome",
		}, []string{"outcome"}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Subsystem: compileSubsystem,
			Name:      "duration_seconds",
			Help:      "Time spent in one compile",
			Buckets:   cfg.buckets,
		}),
		mutators: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: compileSubsystem,
			Name:      "mutators_applied_total",
			Help:      "Mutators applied across compiles",
		}),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: compileSubsystem,
			Name:      "diagnostics_total",
			Help:      "Recoverable diagnostics reported by compiles",
		}),
		missingSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: compileSubsystem,
			Name:      "missing_selections_total",
			Help:      "Choices left unanswered at compile time",
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: criteriaSubsystem,
			Name:      "evaluations_total",
			Help:      "Criteria evaluations by engine and result",
		}, []string{"engine", "result"}),
		evalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Subsystem: criteriaSubsystem,
			Name:      "duration_seconds",
			Help:      "Time spent evaluating one criteria expression",
			Buckets:   cfg.buckets,
		}, []string{"engine"}),
	}

	for _, collector := range []prometheus.Collector{
		c.compiles, c.compileDuration, c.mutators, c.diagnostics,
		c.missingSelections, c.evaluations, c.evalDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

// Options returns the compile options that route events to c.
func (c *Collector) Options() []sheet.Option {
	return []sheet.Option{sheet.WithCompileLogger(c), sheet.WithEvaluatorLogger(c)}
}

// LogCompile implements sheet.CompileLogger.
func (c *Collector) LogCompile(event sheet.CompileLogEvent) {
	outcome := compileOutcome(event.Err)
	c.compiles.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCompiled {
		return
	}
	c.compileDuration.Observe(event.Duration.Seconds())
	c.mutators.Add(float64(event.Mutators))
	c.diagnostics.Add(float64(event.Diagnostics))
	c.missingSelections.Add(float64(event.MissingSelections))
}

// LogEvaluation implements sheet.EvaluatorLogger.
func (c *Collector) LogEvaluation(event sheet.EvaluatorLogEvent) {
	engine := event.Engine
	if engine == "" {
		engine = "unknown"
	}
	result := "false"
	switch {
	case event.Err != nil:
		result = "error"
	case event.Result:
		result = "true"
	}
	c.evaluations.WithLabelValues(engine, result).Inc()
	c.evalDuration.WithLabelValues(engine).Observe(event.Duration.Seconds())
}

func compileOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompiled
	case errors.Is(err, sheet.ErrCyclicDependency):
		return OutcomeCyclic
	default:
		return OutcomeError
	}
}
