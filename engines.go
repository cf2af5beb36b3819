package sheet

import (
	"fmt"
	"strings"
)

// Engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator builds the evaluator for engine. The js engine needs the
// js_eval build tag.
func NewEvaluator(engine string, opts ...EngineOption) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("sheet: js evaluator requires the js_eval build tag")
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("sheet: unknown evaluator engine %q", engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if name := strings.TrimSpace(e.Engine()); name != "" {
		return name
	}
	return "custom"
}
