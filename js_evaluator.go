//go:build js_eval

package sheet

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs criteria as JavaScript expressions with goja. Snapshot
// keys and registered functions become globals.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator constructs a JavaScript criteria evaluator.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engineConfig: newEngineConfig(EngineJS, opts)}
}

func (e *jsEvaluator) Engine() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return compiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression, program)
	}), nil
}

func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if err := e.checkExpression(expression); err != nil {
		return nil, err
	}
	if cached, ok := e.cachedProgram(expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("criteria", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, criteriaError(EngineJS, expression, "", err)
	}
	e.storeProgram(expression, program)
	return program, nil
}

// run uses a fresh runtime per evaluation; goja runtimes are not safe for
// concurrent use.
func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if err := e.bind(vm, ctx); err != nil {
		return nil, engineError(EngineJS, err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, criteriaError(EngineJS, expression, ctx.sourceLabel(), err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) bind(vm *goja.Runtime, ctx RuleContext) error {
	for key, value := range ctx.variables() {
		if err := vm.Set(key, value); err != nil {
			return fmt.Errorf("bind %q: %w", key, err)
		}
	}
	if e.functions == nil {
		return nil
	}
	if err := vm.Set("call", func(name string, args ...any) (any, error) {
		return e.call(name, args...)
	}); err != nil {
		return fmt.Errorf("bind call: %w", err)
	}
	for _, name := range e.functionNames() {
		if err := vm.Set(name, func(args ...any) (any, error) {
			return e.call(name, args...)
		}); err != nil {
			return fmt.Errorf("bind %q: %w", name, err)
		}
	}
	return nil
}

func jsEvaluatorAvailable() bool {
	return true
}
