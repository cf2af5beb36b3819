package sheet

// BoundedAbility adds an ability modifier to an armor class formula, clamped
// to the optional bounds.
type BoundedAbility struct {
	Ability Ability `json:"ability" yaml:"ability"`
	Min     *int    `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *int    `json:"max,omitempty" yaml:"max,omitempty"`
}

func (b BoundedAbility) evaluate(modifier int) int {
	if b.Min != nil {
		modifier = max(modifier, *b.Min)
	}
	if b.Max != nil {
		modifier = min(modifier, *b.Max)
	}
	return modifier
}

// ArmorClassFormula is one way of computing base armor class.
type ArmorClassFormula struct {
	Base      int              `json:"base" yaml:"base"`
	Abilities []BoundedAbility `json:"abilities,omitempty" yaml:"abilities,omitempty"`
	Source    SourcePath       `json:"source" yaml:"-"`
}

// Evaluate resolves the formula against ability modifiers.
func (f ArmorClassFormula) Evaluate(modifier func(Ability) int) int {
	value := f.Base
	for _, bounded := range f.Abilities {
		value += bounded.evaluate(modifier(bounded.Ability))
	}
	return value
}

// ArmorClassBonus is a flat bonus. Bonuses carrying a Context only apply in
// that situation and are kept out of the headline value.
type ArmorClassBonus struct {
	Value   int        `json:"value"`
	Context string     `json:"context,omitempty"`
	Source  SourcePath `json:"source"`
}

// ArmorClass collects formulas and bonuses. The unarmored formula
// (10 + DEX) is always available.
type ArmorClass struct {
	Formulas []ArmorClassFormula `json:"formulas,omitempty"`
	Bonuses  []ArmorClassBonus   `json:"bonuses,omitempty"`
}

// UnarmoredFormula is the formula every character starts with.
func UnarmoredFormula() ArmorClassFormula {
	return ArmorClassFormula{
		Base:      10,
		Abilities: []BoundedAbility{{Ability: Dexterity}},
		Source:    NewSourcePath("Unarmored"),
	}
}

// Value picks the best formula and adds the unconditional bonuses.
func (ac ArmorClass) Value(modifier func(Ability) int) int {
	best, _ := ac.BestFormula(modifier)
	value := best.Evaluate(modifier)
	for _, bonus := range ac.Bonuses {
		if bonus.Context == "" {
			value += bonus.Value
		}
	}
	return value
}

// BestFormula returns the highest scoring formula. Ties keep the earliest.
func (ac ArmorClass) BestFormula(modifier func(Ability) int) (ArmorClassFormula, int) {
	best := UnarmoredFormula()
	bestValue := best.Evaluate(modifier)
	for _, formula := range ac.Formulas {
		if value := formula.Evaluate(modifier); value > bestValue {
			best, bestValue = formula, value
		}
	}
	return best, bestValue
}
