package sheet

import (
	"sort"
	"strings"
)

// ProficiencyBonus is the bonus for the character's total level.
func (c *Character) ProficiencyBonus() int {
	return ProficiencyBonusForLevel(c.Level())
}

// AbilityScore returns the finalized total of ability.
func (c *Character) AbilityScore(ability Ability) uint {
	return c.Derived().Ability(ability).Total
}

// AbilityModifier returns the modifier of ability.
func (c *Character) AbilityModifier(ability Ability) int {
	return c.Derived().AbilityModifier(ability)
}

// SavingThrowModifier is the ability modifier plus any proficiency.
func (c *Character) SavingThrowModifier(ability Ability) int {
	value := c.AbilityModifier(ability)
	if entry, ok := c.Derived().SavingThrows[ability]; ok {
		value += entry.Level.Bonus(c.ProficiencyBonus())
	}
	return value
}

// SkillModifier is the keyed ability modifier plus any proficiency.
func (c *Character) SkillModifier(skill Skill) int {
	value := c.AbilityModifier(skill.Ability())
	if entry, ok := c.Derived().Skills[skill]; ok {
		value += entry.Level.Bonus(c.ProficiencyBonus())
	}
	return value
}

// PassivePerception is 10 plus the perception modifier.
func (c *Character) PassivePerception() int {
	return 10 + c.SkillModifier(Perception)
}

// ArmorClass evaluates the best formula plus unconditional bonuses.
func (c *Character) ArmorClass() int {
	return c.Derived().ArmorClass.Value(c.Derived().AbilityModifier)
}

// MaxHitPoints is the sum of every hit point contribution.
func (c *Character) MaxHitPoints() int {
	return c.Derived().MaxHitPoints.Value()
}

// Speed returns the speed of kind, such as walking or flying.
func (c *Character) Speed(kind string) (int, bool) {
	entry, ok := c.Derived().Speeds[kind]
	if !ok {
		return 0, false
	}
	return entry.Value()
}

// Sense returns the range of a sense such as darkvision.
func (c *Character) Sense(kind string) (int, bool) {
	entry, ok := c.Derived().Senses[kind]
	if !ok {
		return 0, false
	}
	return entry.Value(), true
}

// AttackBonus sums the attack roll bonuses that apply without a context.
func (c *Character) AttackBonus() int {
	total := 0
	for _, bonus := range c.Derived().AttackBonuses {
		if bonus.Context == "" {
			total += bonus.Value
		}
	}
	return total
}

// DamageBonus sums the damage bonuses attached to the named action that
// apply without a context. ok is false when no such attacking action exists.
func (c *Character) DamageBonus(action string) (int, bool) {
	for _, entry := range c.Derived().Actions {
		if entry.Name != action || entry.Attack == nil {
			continue
		}
		total := 0
		for _, bonus := range entry.Attack.DamageBonuses {
			if bonus.Context == "" {
				total += bonus.Value
			}
		}
		return total, true
	}
	return 0, false
}

// RollModifiers returns the advantage and disadvantage entries covering a
// roll of kind on target. Saving throw entries without a target cover every
// save.
func (c *Character) RollModifiers(kind RollModifierKind, target string) []RollModifierEntry {
	var out []RollModifierEntry
	for _, entry := range c.Derived().RollModifiers {
		if entry.Kind != kind {
			continue
		}
		if entry.Target == target || (kind == RollSavingThrow && entry.Target == "") {
			out = append(out, entry)
		}
	}
	return out
}

// SpellSaveDC is 8 + proficiency bonus + the caster's ability modifier.
func (c *Character) SpellSaveDC(caster string) (int, bool) {
	entry, ok := c.Derived().Casters[caster]
	if !ok {
		return 0, false
	}
	return 8 + c.ProficiencyBonus() + c.AbilityModifier(entry.Ability), true
}

// SpellAttackBonus is proficiency bonus + the caster's ability modifier.
func (c *Character) SpellAttackBonus(caster string) (int, bool) {
	entry, ok := c.Derived().Casters[caster]
	if !ok {
		return 0, false
	}
	return c.ProficiencyBonus() + c.AbilityModifier(entry.Ability), true
}

// Proficiencies returns the sorted values of kind.
func (c *Character) Proficiencies(kind ProficiencyKind) []string {
	set := c.Derived().Proficiencies[kind]
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// HasDefense reports whether the character has kind against damageType in
// every situation.
func (c *Character) HasDefense(kind DefenseKind, damageType string) bool {
	damageType = strings.ToLower(strings.TrimSpace(damageType))
	for _, entry := range c.Derived().Defenses[kind] {
		if entry.DamageType == damageType && entry.Context == "" {
			return true
		}
	}
	return false
}

// MissingSelections lists the choices the last compile could not resolve.
func (c *Character) MissingSelections() []SourcePath {
	return append([]SourcePath(nil), c.Derived().MissingSelections...)
}

// Diagnostics lists the recoverable problems of the last compile.
func (c *Character) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.Derived().Diagnostics...)
}
