package sheet

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-sheet/internal/hydrate"
)

// Node is a declarative content effect: a node type naming a registered
// factory plus the arguments that factory decodes.
type Node struct {
	Type string         `json:"type" yaml:"type" validate:"required"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// NewNode is shorthand for building nodes in code.
func NewNode(nodeType string, args map[string]any) Node {
	return Node{Type: nodeType, Args: args}
}

// FactoryContext gives factories access to the registry for nested nodes.
type FactoryContext struct {
	Registry *Registry
	NodeType string
	Source   SourcePath
}

// Factory turns node arguments into a Mutator.
type Factory func(ctx FactoryContext, args map[string]any) (Mutator, error)

// Registry maps node types to mutator factories. It is built once and
// handed to characters through WithRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register stores factory under nodeType guarding against duplicates.
func (r *Registry) Register(nodeType string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("sheet: factory %q is nil", nodeType)
	}
	key := normalizeNodeType(nodeType)
	if key == "" {
		return fmt.Errorf("sheet: node type must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("sheet: node type %q already registered", nodeType)
	}
	r.factories[key] = factory
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Registry{
		factories: make(map[string]Factory, len(r.factories)),
	}
	for name, factory := range r.factories {
		clone.factories[name] = factory
	}
	return clone
}

// Lookup returns the factory registered for nodeType.
func (r *Registry) Lookup(nodeType string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[normalizeNodeType(nodeType)]
	return factory, ok
}

// Names returns registered node types sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse builds the mutator for node. Unknown node types return a
// *MissingFactoryError.
func (r *Registry) Parse(node Node, source SourcePath) (Mutator, error) {
	factory, ok := r.Lookup(node.Type)
	if !ok {
		return nil, &MissingFactoryError{NodeType: node.Type, Source: source}
	}
	mutator, err := factory(FactoryContext{Registry: r, NodeType: normalizeNodeType(node.Type), Source: source}, node.Args)
	if err != nil {
		return nil, fmt.Errorf("sheet: parse node %q: %w", node.Type, err)
	}
	if mutator == nil {
		return nil, fmt.Errorf("sheet: factory for node %q returned nil", node.Type)
	}
	return mutator, nil
}

// ParseAll parses nodes in order. Nodes that fail are skipped and their
// errors returned alongside the mutators that parsed.
func (r *Registry) ParseAll(nodes []Node, source SourcePath) ([]Mutator, []error) {
	var (
		out  []Mutator
		errs []error
	)
	for _, node := range nodes {
		mutator, err := r.Parse(node, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, mutator)
	}
	return out, errs
}

func normalizeNodeType(nodeType string) string {
	return strings.ToLower(strings.TrimSpace(nodeType))
}

var nodeValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeFactory builds a factory that decodes node arguments into T and
// validates its struct tags.
func DecodeFactory[T Mutator]() Factory {
	decoder := hydrate.NewDecoder[T](
		hydrate.WithPreHook[T](hydrate.NormalizeKeys),
		hydrate.WithStrictFields[T](),
		hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return nodeValidator.Struct(value)
		}),
	)
	return func(ctx FactoryContext, args map[string]any) (Mutator, error) {
		value, err := decoder.Decode(hydrate.Context{NodeType: ctx.NodeType, Source: ctx.Source.Display()}, args)
		if err != nil {
			return nil, err
		}
		return value, nil
	}
}

// MustRegister registers factory and panics on a duplicate. Intended for
// building registries at startup.
func (r *Registry) MustRegister(nodeType string, factory Factory) *Registry {
	if err := r.Register(nodeType, factory); err != nil {
		panic(err)
	}
	return r
}
