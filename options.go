package sheet

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-sheet/pkg/activity"
)

const tracerName = "github.com/goliatone/go-sheet"

// Option configures a Character.
type Option func(*config)

type config struct {
	registry        *Registry
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger
	compileLogger   CompileLogger
	defaults        []Group
	objects         ObjectCache
	maximumScore    uint
	tracer          trace.Tracer
	activityHooks   activity.Hooks
	activity        *activity.Config
	preset          *Persistent
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.functions == nil {
		cfg.functions = DefaultFunctions()
	}
	if cfg.evaluator == nil {
		cfg.evaluator = NewExprEvaluator(EngineCache(cfg.programCache), EngineFunctions(cfg.functions))
	}
	if cfg.evaluatorLogger == nil {
		cfg.evaluatorLogger = noopEvaluatorLogger{}
	}
	if cfg.compileLogger == nil {
		cfg.compileLogger = noopCompileLogger{}
	}
	if cfg.maximumScore == 0 {
		cfg.maximumScore = DefaultMaximumScore
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	return cfg
}

// WithRegistry sets the node type registry used to parse content nodes.
func WithRegistry(registry *Registry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// WithEvaluator sets the engine criteria are evaluated with. The default is
// expr-lang/expr.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares compiled criteria between compiles. It applies to
// the default evaluator; evaluators passed through WithEvaluator carry
// their own.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry replaces the helpers criteria can call.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction adds fn to the helpers criteria can call.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = DefaultFunctions()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger attaches a logger for criteria evaluations.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}

// WithCompileLogger attaches a logger for compile events. Repeated calls
// add loggers.
func WithCompileLogger(logger CompileLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			return
		}
		switch existing := cfg.compileLogger.(type) {
		case nil, noopCompileLogger:
			cfg.compileLogger = logger
		case CompileLoggers:
			cfg.compileLogger = append(existing, logger)
		default:
			cfg.compileLogger = CompileLoggers{existing, logger}
		}
	}
}

// WithDefaults registers groups applied to every character before its own
// content, in the order given.
func WithDefaults(groups ...Group) Option {
	return func(cfg *config) {
		for _, group := range groups {
			if group != nil {
				cfg.defaults = append(cfg.defaults, group)
			}
		}
	}
}

// WithObjectCache sets where referenced objects are looked up.
func WithObjectCache(cache ObjectCache) Option {
	return func(cfg *config) {
		cfg.objects = cache
	}
}

// WithMaximumScore overrides the default ability score maximum.
func WithMaximumScore(maximum uint) Option {
	return func(cfg *config) {
		cfg.maximumScore = maximum
	}
}

// WithTracerProvider traces compiles with provider instead of the global one.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *config) {
		if provider == nil {
			return
		}
		cfg.tracer = provider.Tracer(tracerName)
	}
}

// WithPreset overlays the character onto preset before compiling: values
// the character leaves unset fall back to the preset.
func WithPreset(preset Persistent) Option {
	return func(cfg *config) {
		cfg.preset = &preset
	}
}
