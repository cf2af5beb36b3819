package sheet

import (
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs criteria with cel-go. Every variable is dynamically
// typed and registered functions are reached through call(name, arg), e.g.
// call("modifier", abilities.strength) >= 2.
type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator constructs a CEL criteria evaluator.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: newEngineConfig(EngineCEL, opts)}
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression, variableNames(ctx.Snapshot, nil))
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

// Compile declares the snapshot variables plus any CompileWithVariables
// names up front.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	cfg := applyCompileOptions(opts)
	program, err := e.program(expression, variableNames(nil, cfg.variables))
	if err != nil {
		return nil, err
	}
	return compiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression, program)
	}), nil
}

// celProgram remembers the variables its environment declared.
type celProgram struct {
	variables string
	program   celgo.Program
}

func (e *celEvaluator) program(expression string, variables []string) (*celProgram, error) {
	if err := e.checkExpression(expression); err != nil {
		return nil, err
	}
	declared := strings.Join(variables, ",")
	if cached, ok := e.cachedProgram(expression); ok {
		if program, ok := cached.(*celProgram); ok && program.variables == declared {
			return program, nil
		}
	}

	env, err := e.environment(variables)
	if err != nil {
		return nil, engineError(EngineCEL, err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, criteriaError(EngineCEL, expression, "", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, criteriaError(EngineCEL, expression, "", err)
	}

	program := &celProgram{variables: declared, program: prg}
	e.storeProgram(expression, program)
	return program, nil
}

func (e *celEvaluator) environment(variables []string) (*celgo.Env, error) {
	opts := make([]celgo.EnvOption, 0, len(variables)+1)
	for _, name := range variables {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.functions != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) run(ctx RuleContext, expression string, program *celProgram) (any, error) {
	out, _, err := program.program.Eval(ctx.variables())
	if err != nil {
		return nil, criteriaError(EngineCEL, expression, ctx.sourceLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("%s", errCallWithoutName.Error())
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("%s", errCallNameType.Error())
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
