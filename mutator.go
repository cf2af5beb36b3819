package sheet

// Mutator is a declarative effect applied to a character while it compiles.
// ID is the identity other mutators name in Dependencies; mutators sharing
// an identity are ordered together. Apply may only write to the character's
// Derived ledgers.
type Mutator interface {
	ID() string
	Dependencies() []string
	Apply(c *Character, source SourcePath)
}

// Group contributes mutators for itself and its children. Path is the
// segment the group appends to its parent's source path ("" adds none).
type Group interface {
	Path() string
	ApplyMutators(c *Character, source SourcePath)
}

// MutatorFunc adapts a function into a Mutator with a fixed identity.
type MutatorFunc struct {
	Identity string
	Requires []string
	Fn       func(c *Character, source SourcePath)
}

// ID implements Mutator.
func (m MutatorFunc) ID() string { return m.Identity }

// Dependencies implements Mutator.
func (m MutatorFunc) Dependencies() []string { return m.Requires }

// Apply implements Mutator.
func (m MutatorFunc) Apply(c *Character, source SourcePath) {
	if m.Fn != nil {
		m.Fn(c, source)
	}
}
