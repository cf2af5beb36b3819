package sheet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// Persistent is the user-authored character. It is plain data: content
// effects are declared as nodes and turned into mutators when the
// character compiles.
type Persistent struct {
	ID            string           `json:"id" yaml:"id" validate:"required"`
	Name          string           `json:"name,omitempty" yaml:"name,omitempty"`
	AbilityScores map[Ability]uint `json:"ability_scores,omitempty" yaml:"ability_scores,omitempty" validate:"dive,keys,oneof=strength dexterity constitution intelligence wisdom charisma,endkeys,gte=1,lte=30"`
	Bundles       []Bundle         `json:"bundles,omitempty" yaml:"bundles,omitempty" validate:"dive"`
	References    []string         `json:"references,omitempty" yaml:"references,omitempty" validate:"dive,required"`
	Classes       []Class          `json:"classes,omitempty" yaml:"classes,omitempty" validate:"dive"`
	Feats         []Feature        `json:"feats,omitempty" yaml:"feats,omitempty" validate:"dive"`
	Inventory     []Item           `json:"inventory,omitempty" yaml:"inventory,omitempty" validate:"dive"`
	Conditions    []Condition      `json:"conditions,omitempty" yaml:"conditions,omitempty" validate:"dive"`
	Selections    Selections       `json:"selections,omitempty" yaml:"selections,omitempty"`
	HitPoints     HitPoints        `json:"hit_points" yaml:"hit_points"`
}

// HitPoints is the mutable hit point state.
type HitPoints struct {
	Current   int `json:"current" yaml:"current" validate:"gte=0"`
	Temporary int `json:"temporary,omitempty" yaml:"temporary,omitempty" validate:"gte=0"`
}

// Bundle is a named group such as a lineage or background.
type Bundle struct {
	Kind     BundleKind `json:"kind" yaml:"kind" validate:"oneof=lineage race background upbringing"`
	Name     string     `json:"name" yaml:"name" validate:"required"`
	Nodes    []Node     `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
	Features []Feature  `json:"features,omitempty" yaml:"features,omitempty" validate:"dive"`
}

// Path implements Group.
func (b Bundle) Path() string { return b.Name }

// ApplyMutators implements Group.
func (b Bundle) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(b.Nodes, source)
	for _, feature := range b.Features {
		c.ApplyFrom(feature, source)
	}
}

// Class is a character class with the levels taken in it.
type Class struct {
	Name     string       `json:"name" yaml:"name" validate:"required"`
	Level    int          `json:"level" yaml:"level" validate:"gte=1,lte=20"`
	HitDie   int          `json:"hit_die,omitempty" yaml:"hit_die,omitempty" validate:"omitempty,oneof=6 8 10 12"`
	Nodes    []Node       `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
	Features []Feature    `json:"features,omitempty" yaml:"features,omitempty" validate:"dive"`
	Levels   []ClassLevel `json:"levels,omitempty" yaml:"levels,omitempty" validate:"dive"`
}

// Path implements Group.
func (c Class) Path() string { return c.Name }

// ApplyMutators registers the class nodes and then every level up to the
// current one, in level order.
func (cl Class) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(cl.Nodes, source)
	for _, feature := range cl.Features {
		c.ApplyFrom(feature, source)
	}
	levels := slices.Clone(cl.Levels)
	slices.SortStableFunc(levels, func(a, b ClassLevel) int { return a.Level - b.Level })
	for _, level := range levels {
		if level.Level > cl.Level {
			break
		}
		c.ApplyFrom(level, source)
	}
}

// ClassLevel holds what one level of a class grants.
type ClassLevel struct {
	Level    int       `json:"level" yaml:"level" validate:"gte=1,lte=20"`
	Nodes    []Node    `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty" validate:"dive"`
}

// Path implements Group.
func (l ClassLevel) Path() string { return fmt.Sprintf("Level %02d", l.Level) }

// ApplyMutators implements Group.
func (l ClassLevel) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(l.Nodes, source)
	for _, feature := range l.Features {
		c.ApplyFrom(feature, source)
	}
}

// Feature is a named ability granted by some other object. Registering it
// adds it to the feature list and registers its nodes.
type Feature struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []Node `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
}

// Path implements Group.
func (f Feature) Path() string { return f.Name }

// ApplyMutators implements Group.
func (f Feature) ApplyMutators(c *Character, source SourcePath) {
	c.Register(registerFeature{entry: FeatureEntry{Name: f.Name, Description: f.Description}}, source)
	c.ApplyNodes(f.Nodes, source)
}

type registerFeature struct {
	entry FeatureEntry
}

func (registerFeature) ID() string             { return "feature" }
func (registerFeature) Dependencies() []string { return nil }

func (m registerFeature) Apply(c *Character, source SourcePath) {
	entry := m.entry
	entry.Source = source
	c.Derived().AddFeature(entry)
}

// Item is an inventory entry. Only equipped items contribute.
type Item struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string    `json:"name" yaml:"name" validate:"required"`
	Quantity int       `json:"quantity,omitempty" yaml:"quantity,omitempty" validate:"gte=0"`
	Equipped bool      `json:"equipped,omitempty" yaml:"equipped,omitempty"`
	Nodes    []Node    `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty" validate:"dive"`
}

// Path implements Group.
func (i Item) Path() string { return i.Name }

// ApplyMutators implements Group.
func (i Item) ApplyMutators(c *Character, source SourcePath) {
	if !i.Equipped {
		return
	}
	c.ApplyNodes(i.Nodes, source)
	for _, feature := range i.Features {
		c.ApplyFrom(feature, source)
	}
}

// Condition is an active effect such as poisoned or raging.
type Condition struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Nodes []Node `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
}

// Path implements Group.
func (cd Condition) Path() string { return cd.Name }

// ApplyMutators implements Group.
func (cd Condition) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(cd.Nodes, source)
}

// DefaultBlock is content applied to every character before its own
// tree, such as the rules every character starts with.
type DefaultBlock struct {
	Name     string    `json:"name" yaml:"name"`
	Nodes    []Node    `json:"mutators,omitempty" yaml:"mutators,omitempty"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty"`
}

// Path implements Group.
func (d DefaultBlock) Path() string { return d.Name }

// ApplyMutators implements Group.
func (d DefaultBlock) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(d.Nodes, source)
	for _, feature := range d.Features {
		c.ApplyFrom(feature, source)
	}
}

// Traversal segments under the character root.
const (
	segmentReferences = "References"
	segmentFeats      = "Feats"
	segmentInventory  = "Inventory"
	segmentConditions = "Conditions"
)

// ApplyMutators walks the character in its fixed order: base scores and
// their finalizer, bundles, referenced objects, classes, feats, equipped
// items, then conditions.
func (p Persistent) ApplyMutators(c *Character, source SourcePath) {
	for _, ability := range Abilities {
		if base, ok := p.AbilityScores[ability]; ok {
			c.Register(baseScore{ability: ability, value: base}, source.Join(sourceBaseScore))
		}
	}
	c.Register(FinalizeAbilityScores{}, source)

	bundles := slices.Clone(p.Bundles)
	slices.SortStableFunc(bundles, func(a, b Bundle) int { return a.Kind.rank() - b.Kind.rank() })
	for _, bundle := range bundles {
		c.ApplyFrom(bundle, source)
	}

	for _, id := range p.References {
		object, ok := c.lookupObject(id)
		if !ok {
			path := source.Join(segmentReferences).JoinHidden(id)
			c.Derived().AddDiagnostic(newDiagnostic(DiagnosticUnresolvedReference, path, id, nil))
			c.Derived().RequestObjects([]string{id}, path)
			continue
		}
		c.ApplyFrom(object, source)
	}

	for _, class := range p.Classes {
		c.ApplyFrom(class, source)
	}
	for _, feat := range p.Feats {
		c.ApplyFrom(feat, source.Join(segmentFeats))
	}
	for _, item := range p.Inventory {
		c.ApplyFrom(item, source.Join(segmentInventory))
	}
	for _, condition := range p.Conditions {
		c.ApplyFrom(condition, source.Join(segmentConditions))
	}
}

// Path implements Group. The character is the root of every source path.
func (p Persistent) Path() string { return "" }

type baseScore struct {
	ability Ability
	value   uint
}

func (baseScore) ID() string             { return IDAbilityScore }
func (baseScore) Dependencies() []string { return nil }

func (m baseScore) Apply(c *Character, source SourcePath) {
	c.Derived().PushAbilityBonus(m.ability, AbilityBonus{Value: m.value}, source)
}

// Level is the sum of class levels.
func (p Persistent) Level() int {
	total := 0
	for _, class := range p.Classes {
		total += class.Level
	}
	return total
}

// EquippedItems returns the names of equipped items.
func (p Persistent) EquippedItems() []string {
	var out []string
	for _, item := range p.Inventory {
		if item.Equipped {
			out = append(out, item.Name)
		}
	}
	return out
}

var persistentValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of the character.
func (p Persistent) Validate() error {
	if err := persistentValidator.Struct(p); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return fmt.Errorf("sheet: invalid character %q: %s: %w", p.ID, invalid[0].Namespace(), err)
		}
		return fmt.Errorf("sheet: invalid character %q: %w", p.ID, err)
	}
	return nil
}
