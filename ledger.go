package sheet

import (
	"cmp"
	"encoding/json"
)

// Contribution records one source's amount within an attributed ledger.
type Contribution[T any] struct {
	Source SourcePath `json:"source"`
	Amount T          `json:"amount"`
}

// AttributedValue keeps the strongest pushed value and every contribution
// that was offered, in push order.
type AttributedValue[T cmp.Ordered] struct {
	value   T
	set     bool
	sources []Contribution[T]
}

// Push records amount from source and keeps the larger value.
func (v *AttributedValue[T]) Push(amount T, source SourcePath) {
	if !v.set || amount > v.value {
		v.value = amount
		v.set = true
	}
	v.sources = append(v.sources, Contribution[T]{Source: source, Amount: amount})
}

// Set overrides the value. The latest call wins.
func (v *AttributedValue[T]) Set(amount T, source SourcePath) {
	v.value = amount
	v.set = true
	v.sources = append(v.sources, Contribution[T]{Source: source, Amount: amount})
}

// Value returns the current value and whether anything was pushed.
func (v AttributedValue[T]) Value() (T, bool) {
	return v.value, v.set
}

// Sources returns a copy of the contributions.
func (v AttributedValue[T]) Sources() []Contribution[T] {
	return append([]Contribution[T](nil), v.sources...)
}

// BoundKind selects how a bound contributes to a BoundedValue.
type BoundKind string

const (
	BoundMinimum  BoundKind = "minimum"
	BoundBase     BoundKind = "base"
	BoundAdditive BoundKind = "additive"
	BoundSubtract BoundKind = "subtract"
)

// Bound is one contribution to a BoundedValue.
type Bound struct {
	Kind   BoundKind  `json:"kind"`
	Amount int        `json:"amount"`
	Source SourcePath `json:"source"`
}

// BoundedValue is the largest base plus additive bounds minus subtractions,
// raised to the largest minimum when one exists.
type BoundedValue struct {
	bounds []Bound
}

// Insert records bound.
func (b *BoundedValue) Insert(bound Bound) {
	b.bounds = append(b.bounds, bound)
}

// Value evaluates the bounds.
func (b BoundedValue) Value() int {
	var (
		base, add, sub, minimum int
		hasMinimum              bool
	)
	for _, bound := range b.bounds {
		switch bound.Kind {
		case BoundMinimum:
			if !hasMinimum || bound.Amount > minimum {
				minimum = bound.Amount
			}
			hasMinimum = true
		case BoundBase:
			base = max(base, bound.Amount)
		case BoundAdditive:
			add += bound.Amount
		case BoundSubtract:
			sub += bound.Amount
		}
	}
	value := base + add - sub
	if hasMinimum {
		value = max(value, minimum)
	}
	return value
}

// Bounds returns a copy of the recorded bounds.
func (b BoundedValue) Bounds() []Bound {
	return append([]Bound(nil), b.bounds...)
}

// MaxHitPoints sums contributions keyed by source.
type MaxHitPoints struct {
	bySource map[string]Contribution[int]
	order    []string
}

// Push adds amount under source, accumulating repeated sources.
func (m *MaxHitPoints) Push(amount int, source SourcePath) {
	if m.bySource == nil {
		m.bySource = map[string]Contribution[int]{}
	}
	key := source.Data()
	entry, ok := m.bySource[key]
	if !ok {
		entry = Contribution[int]{Source: source}
		m.order = append(m.order, key)
	}
	entry.Amount += amount
	m.bySource[key] = entry
}

// Value is the sum of every contribution.
func (m MaxHitPoints) Value() int {
	total := 0
	for _, entry := range m.bySource {
		total += entry.Amount
	}
	return total
}

// Sources returns contributions in the order their source first pushed.
func (m MaxHitPoints) Sources() []Contribution[int] {
	out := make([]Contribution[int], 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.bySource[key])
	}
	return out
}

// Proficient records the strongest proficiency level offered for one check.
type Proficient struct {
	Level   ProficiencyLevel                 `json:"level"`
	Sources []Contribution[ProficiencyLevel] `json:"sources,omitempty"`
}

// Push records level and keeps the highest ranked one.
func (p *Proficient) Push(level ProficiencyLevel, source SourcePath) {
	if level.Rank() > p.Level.Rank() || p.Level == "" {
		p.Level = level
	}
	p.Sources = append(p.Sources, Contribution[ProficiencyLevel]{Source: source, Amount: level})
}

// MarshalJSON exposes the value with its contributions.
func (v AttributedValue[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(attributedValueJSON[T]{Value: v.value, Set: v.set, Sources: v.sources})
}

type attributedValueJSON[T any] struct {
	Value   T                 `json:"value"`
	Set     bool              `json:"set"`
	Sources []Contribution[T] `json:"sources,omitempty"`
}

// MarshalJSON exposes the evaluated value with its bounds.
func (b BoundedValue) MarshalJSON() ([]byte, error) {
	type view struct {
		Value  int     `json:"value"`
		Bounds []Bound `json:"bounds,omitempty"`
	}
	return json.Marshal(view{Value: b.Value(), Bounds: b.bounds})
}

// MarshalJSON exposes the total with its ordered contributions.
func (m MaxHitPoints) MarshalJSON() ([]byte, error) {
	type view struct {
		Value   int                 `json:"value"`
		Sources []Contribution[int] `json:"sources,omitempty"`
	}
	return json.Marshal(view{Value: m.Value(), Sources: m.Sources()})
}
