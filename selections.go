package sheet

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Selections stores user choices keyed by the data path of the selector
// that asked for them.
type Selections map[string][]string

// Get returns the values stored at path.
func (s Selections) Get(path SourcePath) []string {
	return append([]string(nil), s[path.Data()]...)
}

// First returns the first value stored at path.
func (s Selections) First(path SourcePath) (string, bool) {
	values := s[path.Data()]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Set replaces the values at path. No values removes the key.
func (s Selections) Set(path SourcePath, values ...string) {
	if len(values) == 0 {
		delete(s, path.Data())
		return
	}
	s[path.Data()] = append([]string(nil), values...)
}

// Add appends value at path.
func (s Selections) Add(path SourcePath, value string) {
	key := path.Data()
	s[key] = append(s[key], value)
}

// Under returns the selections stored beneath prefix.
func (s Selections) Under(prefix SourcePath) Selections {
	out := Selections{}
	key := prefix.Data()
	for path, values := range s {
		if path == key || strings.HasPrefix(path, key+pathSeparator) {
			out[path] = append([]string(nil), values...)
		}
	}
	return out
}

// Paths returns the stored keys sorted.
func (s Selections) Paths() []string {
	out := make([]string, 0, len(s))
	for path := range s {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Selector resolves to a fixed value or to a user choice stored under the
// mutator's source path joined with ID. In content a bare string is a fixed
// value and an object ({"id": ..., "options": [...]}) asks for a choice.
type Selector[T ~string] struct {
	Value   T      `json:"value,omitempty" yaml:"value,omitempty"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Options []T    `json:"options,omitempty" yaml:"options,omitempty"`
}

// Fixed builds a selector that always resolves to value.
func Fixed[T ~string](value T) Selector[T] {
	return Selector[T]{Value: value}
}

// Choice builds a selector that reads the user's choice stored under id.
func Choice[T ~string](id string, options ...T) Selector[T] {
	return Selector[T]{ID: id, Options: options}
}

// IsChoice reports whether the selector waits on a user selection.
func (s Selector[T]) IsChoice() bool {
	return s.ID != ""
}

// Path returns the selection key the selector reads under source.
func (s Selector[T]) Path(source SourcePath) SourcePath {
	return source.JoinHidden(s.ID)
}

// UnmarshalJSON accepts either a bare value or the object form.
func (s *Selector[T]) UnmarshalJSON(payload []byte) error {
	var value string
	if err := json.Unmarshal(payload, &value); err == nil {
		*s = Selector[T]{Value: T(value)}
		return nil
	}
	var raw struct {
		Value   string   `json:"value"`
		ID      string   `json:"id"`
		Options []string `json:"options"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("sheet: selector must be a string or object: %w", err)
	}
	out := Selector[T]{Value: T(raw.Value), ID: raw.ID}
	for _, option := range raw.Options {
		out.Options = append(out.Options, T(option))
	}
	*s = out
	return nil
}

// MarshalJSON writes fixed selectors as bare values.
func (s Selector[T]) MarshalJSON() ([]byte, error) {
	if !s.IsChoice() {
		return json.Marshal(string(s.Value))
	}
	return json.Marshal(selectorJSON[T]{ID: s.ID, Options: s.Options})
}

type selectorJSON[T ~string] struct {
	ID      string `json:"id"`
	Options []T    `json:"options,omitempty"`
}

// ResolveSelector returns the selector's value for a mutator applied at
// source. A choice with no stored selection is recorded as missing and
// reported as not ok, so the mutator can skip its effect.
func ResolveSelector[T ~string](c *Character, s Selector[T], source SourcePath, parse func(string) (T, error)) (T, bool) {
	var zero T
	raw := string(s.Value)
	if s.IsChoice() {
		path := s.Path(source)
		chosen, ok := c.Selections().First(path)
		if !ok {
			c.Derived().AddMissingSelection(path)
			c.Derived().AddDiagnostic(newDiagnostic(DiagnosticMissingSelection, path, s.ID, nil))
			return zero, false
		}
		raw = chosen
	}
	value := T(raw)
	if parse != nil {
		parsed, err := parse(raw)
		if err != nil {
			c.Derived().AddDiagnostic(newDiagnostic(DiagnosticInvalidNode, source, raw, err))
			return zero, false
		}
		value = parsed
	}
	if s.IsChoice() && len(s.Options) > 0 && !slices.Contains(s.Options, value) {
		path := s.Path(source)
		c.Derived().AddMissingSelection(path)
		c.Derived().AddDiagnostic(newDiagnostic(DiagnosticMissingSelection, path, s.ID,
			fmt.Errorf("%q is not one of the allowed options", raw)))
		return zero, false
	}
	return value, true
}

func parseString(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("sheet: value must not be empty")
	}
	return value, nil
}
