package sheet

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs criteria with github.com/expr-lang/expr. Registered
// functions are callable by name, e.g. modifier(abilities.strength) >= 2.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator constructs the default criteria evaluator.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: newEngineConfig(EngineExpr, opts)}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return compiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression, program)
	}), nil
}

func (e *exprEvaluator) program(expression string) (*exprvm.Program, error) {
	if err := e.checkExpression(expression); err != nil {
		return nil, err
	}
	if cached, ok := e.cachedProgram(expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.functions != nil {
		options = append(options, exprlang.Function("call", func(args ...any) (any, error) {
			if len(args) == 0 {
				return nil, errCallWithoutName
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, errCallNameType
			}
			return e.call(name, args[1:]...)
		}))
		for _, name := range e.functionNames() {
			options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
				return e.call(name, args...)
			}))
		}
	}

	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, criteriaError(EngineExpr, expression, "", err)
	}
	e.storeProgram(expression, program)
	return program, nil
}

func (e *exprEvaluator) run(ctx RuleContext, expression string, program *exprvm.Program) (any, error) {
	result, err := exprlang.Run(program, ctx.variables())
	if err != nil {
		return nil, criteriaError(EngineExpr, expression, ctx.sourceLabel(), err)
	}
	return result, nil
}

// compiledRuleFunc adapts a closure to CompiledRule.
type compiledRuleFunc func(ctx RuleContext) (any, error)

func (f compiledRuleFunc) Evaluate(ctx RuleContext) (any, error) {
	return f(ctx)
}
