package sheet

import (
	"fmt"
	"sort"
)

// RuleContext is what one criteria evaluation sees.
type RuleContext struct {
	// Snapshot holds the variables, normally Character.Snapshot.
	Snapshot map[string]any
	// Source is the display path of the mutator that owns the expression.
	Source string
}

func (ctx RuleContext) variables() map[string]any {
	if ctx.Snapshot == nil {
		return map[string]any{}
	}
	return ctx.Snapshot
}

func (ctx RuleContext) sourceLabel() string {
	if ctx.Source == "" {
		return "unknown"
	}
	return ctx.Source
}

// Evaluator runs criteria expressions against a character snapshot.
type Evaluator interface {
	// Engine names the expression language, such as "expr".
	Engine() string
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule is an expression compiled once and evaluated per snapshot.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures Evaluator.Compile.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	variables []string
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// CompileWithVariables declares variables beyond the character snapshot so
// engines that type-check, such as CEL, accept them.
func CompileWithVariables(names ...string) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.variables = append(cfg.variables, names...)
	})
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

// criteriaVariables are the top level keys of Character.Snapshot.
var criteriaVariables = []string{
	"abilities", "modifiers", "level", "proficiency_bonus",
	"classes", "conditions", "equipped", "feats", "flags",
}

// EngineOption configures the built-in evaluators.
type EngineOption func(*engineConfig)

// EngineCache shares compiled programs through cache.
func EngineCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes the functions of registry to expressions, both by
// name and through call(name, args...).
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

type engineConfig struct {
	engine    string
	cache     ProgramCache
	functions *FunctionRegistry
}

func newEngineConfig(engine string, opts []EngineOption) engineConfig {
	cfg := engineConfig{engine: engine}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) programKey(expression string) string {
	return cfg.engine + ":" + expression
}

func (cfg engineConfig) cachedProgram(expression string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(cfg.programKey(expression))
}

func (cfg engineConfig) storeProgram(expression string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(cfg.programKey(expression), program)
	}
}

func (cfg engineConfig) functionNames() []string {
	return cfg.functions.Names()
}

func (cfg engineConfig) call(name string, args ...any) (any, error) {
	return cfg.functions.Call(name, args...)
}

func (cfg engineConfig) checkExpression(expression string) error {
	if expression == "" {
		return engineError(cfg.engine, fmt.Errorf("expression must not be empty"))
	}
	return nil
}

// variableNames merges the snapshot keys, the criteria variables and extra
// names, sorted and without duplicates.
func variableNames(snapshot map[string]any, extra []string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if _, dup := seen[name]; dup || name == "" {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range criteriaVariables {
		add(name)
	}
	for name := range snapshot {
		add(name)
	}
	for _, name := range extra {
		add(name)
	}
	sort.Strings(out)
	return out
}
