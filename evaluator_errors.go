package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errCallWithoutName = errors.New("sheet: call requires a function name")
	errCallNameType    = errors.New("sheet: call name must be a string")
)

// EvaluationError reports a criteria expression that failed to compile or
// run, along with the engine and the source that declared it.
type EvaluationError struct {
	Engine   string
	Criteria string
	Source   string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	source := e.Source
	if source == "" {
		source = "<character>"
	}
	criteria := "<empty>"
	if e.Criteria != "" {
		criteria = fmt.Sprintf("%q", e.Criteria)
	}
	return fmt.Sprintf("sheet: criteria %s (%s) at %s: %v", criteria, e.Engine, source, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// engineError prefixes err with the engine name unless it already carries
// the package prefix.
func engineError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "sheet:") {
		return err
	}
	return fmt.Errorf("sheet: %s evaluator: %w", engine, err)
}

// criteriaError attaches criteria metadata to err. Fields already set on an
// EvaluationError in the chain are kept.
func criteriaError(engine, criteria, source string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Criteria: criteria, Source: source, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Criteria == "" {
		evalErr.Criteria = criteria
	}
	if evalErr.Source == "" {
		evalErr.Source = source
	}
	return evalErr
}
