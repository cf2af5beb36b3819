//go:build !js_eval

package sheet

// NewJSEvaluator returns nil: build with the js_eval tag to run JavaScript
// criteria.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
