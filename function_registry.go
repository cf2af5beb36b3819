package sheet

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators. Functions
// must be pure over their arguments: compiled programs are cached across
// compiles and characters.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// DefaultFunctions returns a registry holding the rules helpers criteria can
// call: modifier(score), proficiency_bonus(level) and contains(list, value).
func DefaultFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("modifier", func(args ...any) (any, error) {
		score, err := intArg("modifier", args, 0)
		if err != nil {
			return nil, err
		}
		if score < 0 {
			return nil, fmt.Errorf("sheet: modifier: score %d is negative", score)
		}
		return Modifier(uint(score)), nil
	})
	_ = r.Register("proficiency_bonus", func(args ...any) (any, error) {
		level, err := intArg("proficiency_bonus", args, 0)
		if err != nil {
			return nil, err
		}
		return ProficiencyBonusForLevel(level), nil
	})
	_ = r.Register("contains", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("sheet: contains expects 2 arguments, got %d", len(args))
		}
		needle := strings.ToLower(fmt.Sprint(args[1]))
		switch list := args[0].(type) {
		case []string:
			return slices.ContainsFunc(list, func(s string) bool { return strings.ToLower(s) == needle }), nil
		case []any:
			return slices.ContainsFunc(list, func(v any) bool { return strings.ToLower(fmt.Sprint(v)) == needle }), nil
		case map[string]any:
			_, ok := list[needle]
			return ok, nil
		default:
			return false, nil
		}
	})
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("sheet: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("sheet: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("sheet: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("sheet: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("sheet: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intArg(fn string, args []any, idx int) (int, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("sheet: %s expects at least %d argument(s)", fn, idx+1)
	}
	value, ok := toInt(args[idx])
	if !ok {
		return 0, fmt.Errorf("sheet: %s argument %d must be a number, got %T", fn, idx, args[idx])
	}
	return value, nil
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
