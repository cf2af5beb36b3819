package sheet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Explanation is the provenance of one derived attribute: its value and
// every contribution that was offered for it.
type Explanation struct {
	Attribute     string       `json:"attribute"`
	Value         int          `json:"value"`
	Contributions []Provenance `json:"contributions"`
}

// Provenance details one source's contribution to an explained attribute.
// Applied is false for offers that lost, such as a capped ability bonus the
// optimizer left out or a slower speed.
type Provenance struct {
	Source  SourcePath `json:"source"`
	Amount  int        `json:"amount"`
	Kind    string     `json:"kind,omitempty"`
	Applied bool       `json:"applied"`
}

// ToJSON serialises the explanation for logging or transport.
func (e Explanation) ToJSON() ([]byte, error) {
	type alias Explanation
	return json.Marshal(alias(e))
}

// ExplanationFromJSON deserialises a payload produced by ToJSON.
func ExplanationFromJSON(payload []byte) (Explanation, error) {
	type alias Explanation
	var explanation alias
	if err := json.Unmarshal(payload, &explanation); err != nil {
		return Explanation{}, err
	}
	return Explanation(explanation), nil
}

// Explain reports how attribute was derived. Supported attributes:
// ability_score.<ability>, saving_throw.<ability>, skill.<skill>,
// armor_class, max_hit_points, proficiency_bonus, speed.<kind> and
// sense.<kind>.
func (c *Character) Explain(attribute string) (Explanation, error) {
	name, key, _ := strings.Cut(strings.ToLower(strings.TrimSpace(attribute)), ".")
	out := Explanation{Attribute: attribute}
	switch name {
	case "ability_score":
		ability, err := ParseAbility(key)
		if err != nil {
			return Explanation{}, err
		}
		score := c.Derived().Ability(ability)
		out.Value = int(score.Total)
		for _, entry := range score.Bonuses {
			out.Contributions = append(out.Contributions, Provenance{
				Source: entry.Source, Amount: int(entry.Bonus.Value), Kind: "bonus", Applied: entry.Applied,
			})
		}
		limit := score.Maximum()
		for _, entry := range score.Maximums {
			out.Contributions = append(out.Contributions, Provenance{
				Source: entry.Source, Amount: int(entry.Max), Kind: "maximum", Applied: entry.Max == limit,
			})
		}
	case "saving_throw":
		ability, err := ParseAbility(key)
		if err != nil {
			return Explanation{}, err
		}
		out.Value = c.SavingThrowModifier(ability)
		out.Contributions = c.proficiencyProvenance(ability, c.Derived().SavingThrows[ability])
	case "skill":
		skill, err := ParseSkill(key)
		if err != nil {
			return Explanation{}, err
		}
		out.Value = c.SkillModifier(skill)
		out.Contributions = c.proficiencyProvenance(skill.Ability(), c.Derived().Skills[skill])
	case "armor_class":
		ac := c.Derived().ArmorClass
		best, value := ac.BestFormula(c.Derived().AbilityModifier)
		out.Value = ac.Value(c.Derived().AbilityModifier)
		formulas := append([]ArmorClassFormula{UnarmoredFormula()}, ac.Formulas...)
		for _, formula := range formulas {
			amount := formula.Evaluate(c.Derived().AbilityModifier)
			out.Contributions = append(out.Contributions, Provenance{
				Source: formula.Source, Amount: amount, Kind: "formula",
				Applied: formula.Source.Equal(best.Source) && amount == value,
			})
		}
		for _, bonus := range ac.Bonuses {
			out.Contributions = append(out.Contributions, Provenance{
				Source: bonus.Source, Amount: bonus.Value, Kind: "bonus", Applied: bonus.Context == "",
			})
		}
	case "max_hit_points":
		out.Value = c.MaxHitPoints()
		for _, entry := range c.Derived().MaxHitPoints.Sources() {
			out.Contributions = append(out.Contributions, Provenance{Source: entry.Source, Amount: entry.Amount, Applied: true})
		}
	case "proficiency_bonus":
		out.Value = c.ProficiencyBonus()
	case "speed":
		entry, ok := c.Derived().Speeds[key]
		if !ok {
			return Explanation{}, fmt.Errorf("sheet: no %q speed", key)
		}
		out.Value, _ = entry.Value()
		for _, contribution := range entry.Sources() {
			out.Contributions = append(out.Contributions, Provenance{
				Source: contribution.Source, Amount: contribution.Amount, Applied: contribution.Amount == out.Value,
			})
		}
	case "sense":
		entry, ok := c.Derived().Senses[key]
		if !ok {
			return Explanation{}, fmt.Errorf("sheet: no %q sense", key)
		}
		out.Value = entry.Value()
		for _, bound := range entry.Bounds() {
			out.Contributions = append(out.Contributions, Provenance{
				Source: bound.Source, Amount: bound.Amount, Kind: string(bound.Kind), Applied: true,
			})
		}
	default:
		return Explanation{}, fmt.Errorf("sheet: cannot explain %q", attribute)
	}
	return out, nil
}

func (c *Character) proficiencyProvenance(ability Ability, entry *Proficient) []Provenance {
	out := []Provenance{{
		Source:  NewSourcePath(ability.Abbreviation()),
		Amount:  c.AbilityModifier(ability),
		Kind:    "modifier",
		Applied: true,
	}}
	if entry == nil {
		return out
	}
	bonus := c.ProficiencyBonus()
	for _, contribution := range entry.Sources {
		out = append(out, Provenance{
			Source:  contribution.Source,
			Amount:  contribution.Amount.Bonus(bonus),
			Kind:    string(contribution.Amount),
			Applied: contribution.Amount == entry.Level,
		})
	}
	return out
}
