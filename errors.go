package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicDependency    = errors.New("sheet: cyclic dependency")
	ErrCompileInProgress   = errors.New("sheet: compile already in progress")
	ErrMissingFactory      = errors.New("sheet: missing mutator factory")
	ErrMissingSelection    = errors.New("sheet: missing selection")
	ErrUnresolvedReference = errors.New("sheet: unresolved reference")

	// ErrConditionalAbilityScore rejects ability score nodes nested under
	// apply_if, whose criteria read finalized scores.
	ErrConditionalAbilityScore = errors.New("sheet: ability score nodes cannot be conditional")
)

// CyclicDependencyError reports mutators that require each other. A and B
// are the identities of the conflicting pair; Path is the full cycle when
// it was found through a chain of dependencies.
type CyclicDependencyError struct {
	A    string
	B    string
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Path) > 2 {
		return fmt.Sprintf("sheet: cyclic dependency between %q and %q (%s)", e.A, e.B, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("sheet: cyclic dependency between %q and %q", e.A, e.B)
}

// Is matches ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// MissingFactoryError reports a node type with no registered factory.
type MissingFactoryError struct {
	NodeType string
	Source   SourcePath
}

func (e *MissingFactoryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.IsZero() {
		return fmt.Sprintf("sheet: no factory registered for node %q", e.NodeType)
	}
	return fmt.Sprintf("sheet: no factory registered for node %q at %s", e.NodeType, e.Source.Display())
}

// Is matches ErrMissingFactory.
func (e *MissingFactoryError) Is(target error) bool {
	return target == ErrMissingFactory
}

// DiagnosticKind classifies a recoverable compile problem.
type DiagnosticKind string

const (
	DiagnosticMissingFactory      DiagnosticKind = "missing_factory"
	DiagnosticMissingSelection    DiagnosticKind = "missing_selection"
	DiagnosticUnresolvedReference DiagnosticKind = "unresolved_reference"
	DiagnosticInvalidNode         DiagnosticKind = "invalid_node"
	DiagnosticEvaluation          DiagnosticKind = "evaluation"
)

// Diagnostic is a recoverable problem recorded during compile. The affected
// effect is omitted and compilation carries on.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Source  SourcePath     `json:"source"`
	Subject string         `json:"subject,omitempty"`
	Message string         `json:"message"`
}

func newDiagnostic(kind DiagnosticKind, source SourcePath, subject string, err error) Diagnostic {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return Diagnostic{Kind: kind, Source: source, Subject: subject, Message: message}
}

// Err returns the sentinel matching the diagnostic kind, wrapped with the
// recorded message.
func (d Diagnostic) Err() error {
	var sentinel error
	switch d.Kind {
	case DiagnosticMissingFactory:
		sentinel = ErrMissingFactory
	case DiagnosticMissingSelection:
		sentinel = ErrMissingSelection
	case DiagnosticUnresolvedReference:
		sentinel = ErrUnresolvedReference
	default:
		return fmt.Errorf("sheet: %s at %s: %s", d.Kind, d.Source.Display(), d.Message)
	}
	if d.Message == "" {
		return fmt.Errorf("%w at %s", sentinel, d.Source.Display())
	}
	return fmt.Errorf("%w at %s: %s", sentinel, d.Source.Display(), d.Message)
}
