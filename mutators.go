package sheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Identities shared by built-in mutators. Mutators that read finalized
// ability scores depend on IDFinalizeAbilityScores.
const (
	IDAbilityScore          = "ability_score"
	IDFinalizeAbilityScores = "ability_score_finalize"
	IDAction                = "action"
)

// AddAbilityScore adds a bonus to an ability, optionally capped.
type AddAbilityScore struct {
	Ability  Selector[Ability] `json:"ability"`
	Value    uint              `json:"value" validate:"gte=1"`
	MaxTotal *uint             `json:"max_total,omitempty"`
}

func (AddAbilityScore) ID() string             { return IDAbilityScore }
func (AddAbilityScore) Dependencies() []string { return nil }

func (m AddAbilityScore) Apply(c *Character, source SourcePath) {
	ability, ok := ResolveSelector(c, m.Ability, source, ParseAbility)
	if !ok {
		return
	}
	c.Derived().PushAbilityBonus(ability, AbilityBonus{Value: m.Value, MaxTotal: m.MaxTotal}, source)
}

// IncreaseAbilityScoreMax raises the cap of an ability.
type IncreaseAbilityScoreMax struct {
	Ability Selector[Ability] `json:"ability"`
	Max     uint              `json:"max" validate:"gte=1"`
}

func (IncreaseAbilityScoreMax) ID() string             { return IDAbilityScore }
func (IncreaseAbilityScoreMax) Dependencies() []string { return nil }

func (m IncreaseAbilityScoreMax) Apply(c *Character, source SourcePath) {
	ability, ok := ResolveSelector(c, m.Ability, source, ParseAbility)
	if !ok {
		return
	}
	c.Derived().PushAbilityMaximum(ability, m.Max, source)
}

// FinalizeAbilityScores runs the optimizer on every ability once all
// ability score mutators have applied.
type FinalizeAbilityScores struct{}

func (FinalizeAbilityScores) ID() string             { return IDFinalizeAbilityScores }
func (FinalizeAbilityScores) Dependencies() []string { return []string{IDAbilityScore} }

func (FinalizeAbilityScores) Apply(c *Character, _ SourcePath) {
	c.Derived().FinalizeAbilities()
}

// AddSavingThrow grants proficiency in a saving throw.
type AddSavingThrow struct {
	Ability Selector[Ability] `json:"ability"`
	Level   string            `json:"level,omitempty"`
}

func (AddSavingThrow) ID() string             { return "saving_throw" }
func (AddSavingThrow) Dependencies() []string { return nil }

func (m AddSavingThrow) Apply(c *Character, source SourcePath) {
	ability, ok := ResolveSelector(c, m.Ability, source, ParseAbility)
	if !ok {
		return
	}
	level, ok := parseLevel(c, m.Level, source)
	if !ok {
		return
	}
	c.Derived().PushSavingThrow(ability, level, source)
}

// AddSkill grants proficiency in a skill.
type AddSkill struct {
	Skill Selector[Skill] `json:"skill"`
	Level string          `json:"level,omitempty"`
}

func (AddSkill) ID() string             { return "skill" }
func (AddSkill) Dependencies() []string { return nil }

func (m AddSkill) Apply(c *Character, source SourcePath) {
	skill, ok := ResolveSelector(c, m.Skill, source, ParseSkill)
	if !ok {
		return
	}
	level, ok := parseLevel(c, m.Level, source)
	if !ok {
		return
	}
	c.Derived().PushSkill(skill, level, source)
}

func parseLevel(c *Character, raw string, source SourcePath) (ProficiencyLevel, bool) {
	level, err := ParseProficiencyLevel(raw)
	if err != nil {
		c.Derived().AddDiagnostic(newDiagnostic(DiagnosticInvalidNode, source, raw, err))
		return "", false
	}
	return level, true
}

// AddProficiency grants a language, armor, weapon or tool proficiency.
type AddProficiency struct {
	Kind  ProficiencyKind  `json:"kind" validate:"oneof=language armor weapon tool"`
	Value Selector[string] `json:"value"`
}

func (AddProficiency) ID() string             { return "proficiency" }
func (AddProficiency) Dependencies() []string { return nil }

func (m AddProficiency) Apply(c *Character, source SourcePath) {
	value, ok := ResolveSelector(c, m.Value, source, parseString)
	if !ok {
		return
	}
	c.Derived().PushProficiency(m.Kind, value, source)
}

// AddArmorClassFormula offers an alternative way to compute armor class.
type AddArmorClassFormula struct {
	Base      int              `json:"base"`
	Abilities []BoundedAbility `json:"abilities,omitempty"`
}

func (AddArmorClassFormula) ID() string             { return "armor_class_formula" }
func (AddArmorClassFormula) Dependencies() []string { return nil }

func (m AddArmorClassFormula) Apply(c *Character, source SourcePath) {
	c.Derived().AddArmorClassFormula(ArmorClassFormula{
		Base:      m.Base,
		Abilities: append([]BoundedAbility(nil), m.Abilities...),
		Source:    source,
	})
}

// AddArmorClassBonus adds a flat bonus to armor class.
type AddArmorClassBonus struct {
	Value   int    `json:"value"`
	Context string `json:"context,omitempty"`
}

func (AddArmorClassBonus) ID() string             { return "armor_class_bonus" }
func (AddArmorClassBonus) Dependencies() []string { return nil }

func (m AddArmorClassBonus) Apply(c *Character, source SourcePath) {
	c.Derived().AddArmorClassBonus(ArmorClassBonus{Value: m.Value, Context: m.Context, Source: source})
}

// AddMaxHitPoints raises the hit point maximum. Ability adds that
// modifier; PerLevel multiplies the result by the character level.
type AddMaxHitPoints struct {
	Value    int      `json:"value"`
	Ability  *Ability `json:"ability,omitempty" validate:"omitempty,oneof=strength dexterity constitution intelligence wisdom charisma"`
	PerLevel bool     `json:"per_level,omitempty"`
}

func (AddMaxHitPoints) ID() string { return "max_hit_points" }

func (m AddMaxHitPoints) Dependencies() []string {
	if m.Ability != nil {
		return []string{IDFinalizeAbilityScores}
	}
	return nil
}

func (m AddMaxHitPoints) Apply(c *Character, source SourcePath) {
	amount := m.Value
	if m.Ability != nil {
		amount += c.Derived().AbilityModifier(*m.Ability)
	}
	if m.PerLevel {
		amount *= max(c.Level(), 1)
	}
	c.Derived().PushMaxHitPoints(amount, source)
}

// AddDefense grants a resistance, immunity or vulnerability.
type AddDefense struct {
	Kind       DefenseKind      `json:"kind" validate:"oneof=resistance immunity vulnerability"`
	DamageType Selector[string] `json:"damage_type"`
	Context    string           `json:"context,omitempty"`
}

func (AddDefense) ID() string             { return "defense" }
func (AddDefense) Dependencies() []string { return nil }

func (m AddDefense) Apply(c *Character, source SourcePath) {
	damage, ok := ResolveSelector(c, m.DamageType, source, parseString)
	if !ok {
		return
	}
	c.Derived().PushDefense(m.Kind, DefenseEntry{DamageType: strings.ToLower(damage), Context: m.Context, Source: source})
}

// AddSpeed offers a movement speed.
type AddSpeed struct {
	Kind string `json:"kind,omitempty"`
	Feet int    `json:"feet" validate:"gte=0"`
}

func (AddSpeed) ID() string             { return "speed" }
func (AddSpeed) Dependencies() []string { return nil }

func (m AddSpeed) Apply(c *Character, source SourcePath) {
	c.Derived().PushSpeed(defaultString(m.Kind, "walking"), m.Feet, source)
}

// AddSense contributes a bound on a sense range.
type AddSense struct {
	Kind  string    `json:"kind" validate:"required"`
	Feet  int       `json:"feet"`
	Bound BoundKind `json:"bound,omitempty" validate:"omitempty,oneof=minimum base additive subtract"`
}

func (AddSense) ID() string             { return "sense" }
func (AddSense) Dependencies() []string { return nil }

func (m AddSense) Apply(c *Character, source SourcePath) {
	kind := m.Bound
	if kind == "" {
		kind = BoundBase
	}
	c.Derived().PushSense(strings.ToLower(m.Kind), Bound{Kind: kind, Amount: m.Feet, Source: source})
}

// AttackArgs describes the attack roll an action makes.
type AttackArgs struct {
	Kind       AttackKind `json:"kind" validate:"oneof=melee ranged spell"`
	DamageType string     `json:"damage_type,omitempty"`
}

// AddAction makes an action available.
type AddAction struct {
	Name        string      `json:"name" validate:"required"`
	Kind        ActionKind  `json:"kind,omitempty" validate:"omitempty,oneof=action bonus_action reaction attack"`
	Description string      `json:"description,omitempty"`
	Attack      *AttackArgs `json:"attack,omitempty"`
}

func (AddAction) ID() string             { return IDAction }
func (AddAction) Dependencies() []string { return nil }

func (m AddAction) Apply(c *Character, source SourcePath) {
	kind := m.Kind
	if kind == "" {
		kind = ActionAction
	}
	entry := ActionEntry{Name: m.Name, Kind: kind, Description: m.Description, Source: source}
	if m.Attack != nil {
		entry.Attack = &AttackProfile{Kind: m.Attack.Kind, DamageType: strings.ToLower(m.Attack.DamageType)}
	}
	c.Derived().AddAction(entry)
}

// AddToActionBudget offers a count for an action slot, such as extra
// attacks.
type AddToActionBudget struct {
	Kind   ActionKind `json:"kind" validate:"oneof=action bonus_action reaction attack"`
	Amount int        `json:"amount" validate:"gte=0"`
}

func (AddToActionBudget) ID() string             { return "action_budget" }
func (AddToActionBudget) Dependencies() []string { return nil }

func (m AddToActionBudget) Apply(c *Character, source SourcePath) {
	c.Derived().PushActionBudget(m.Kind, m.Amount, source)
}

// AddRestReset registers a resource restored by a rest.
type AddRestReset struct {
	Rest     Rest   `json:"rest" validate:"oneof=short long"`
	Resource string `json:"resource" validate:"required"`
}

func (AddRestReset) ID() string             { return "rest_reset" }
func (AddRestReset) Dependencies() []string { return nil }

func (m AddRestReset) Apply(c *Character, source SourcePath) {
	c.Derived().AddRestReset(m.Rest, RestResetEntry{Resource: m.Resource, Source: source})
}

// Bonus targets.
const (
	BonusAttack      = "attack"
	BonusSpellDamage = "spell_damage"
)

// BonusDamage adds flat damage. Attack damage attaches to every attacking
// action that passes the restriction: Actions names actions, Attacks names
// attack kinds, and an empty list accepts anything.
type BonusDamage struct {
	Target  string       `json:"target,omitempty" validate:"omitempty,oneof=attack spell_damage"`
	Value   int          `json:"value"`
	Actions []string     `json:"actions,omitempty"`
	Attacks []AttackKind `json:"attacks,omitempty" validate:"dive,oneof=melee ranged spell"`
	Context string       `json:"context,omitempty"`
}

func (BonusDamage) ID() string             { return "bonus_damage" }
func (BonusDamage) Dependencies() []string { return []string{IDAction} }

func (m BonusDamage) Apply(c *Character, source SourcePath) {
	entry := BonusEntry{Value: m.Value, Context: m.Context, Source: source}
	if m.Target == BonusSpellDamage {
		c.Derived().PushSpellDamageBonus(entry)
		return
	}
	c.Derived().PushDamageBonus(entry, m.matches)
}

func (m BonusDamage) matches(action ActionEntry) bool {
	if len(m.Actions) > 0 && !slices.ContainsFunc(m.Actions, func(name string) bool {
		return strings.EqualFold(name, action.Name)
	}) {
		return false
	}
	return len(m.Attacks) == 0 || slices.Contains(m.Attacks, action.Attack.Kind)
}

// AddRollModifier grants advantage or disadvantage on ability checks,
// saving throws or skill checks. A saving throw modifier without an ability
// covers every save.
type AddRollModifier struct {
	Modifier RollModifier       `json:"modifier" validate:"oneof=advantage disadvantage"`
	Kind     RollModifierKind   `json:"kind" validate:"oneof=ability saving_throw skill"`
	Ability  *Selector[Ability] `json:"ability,omitempty"`
	Skill    *Selector[Skill]   `json:"skill,omitempty"`
	Context  string             `json:"context,omitempty"`
}

func (AddRollModifier) ID() string             { return "roll_modifier" }
func (AddRollModifier) Dependencies() []string { return nil }

func (m AddRollModifier) Apply(c *Character, source SourcePath) {
	entry := RollModifierEntry{Modifier: m.Modifier, Kind: m.Kind, Context: m.Context, Source: source}
	switch {
	case m.Kind == RollSkill && m.Skill != nil:
		skill, ok := ResolveSelector(c, *m.Skill, source, ParseSkill)
		if !ok {
			return
		}
		entry.Target = string(skill)
	case m.Kind != RollSkill && m.Ability != nil:
		ability, ok := ResolveSelector(c, *m.Ability, source, ParseAbility)
		if !ok {
			return
		}
		entry.Target = string(ability)
	case m.Kind != RollSavingThrow:
		c.Derived().AddDiagnostic(newDiagnostic(DiagnosticInvalidNode, source, string(m.Kind),
			fmt.Errorf("sheet: %s modifier needs a target", m.Kind)))
		return
	}
	c.Derived().PushRollModifier(entry)
}

// AddFeature registers a named feature with the nodes it grants. At the top
// of a node list it behaves like a persistent feature; nested under apply_if
// its nodes apply in place.
type AddFeature struct {
	Name        string
	Description string
	Mutators    []Mutator
}

func (AddFeature) ID() string { return "feature" }

func (m AddFeature) Dependencies() []string {
	var deps []string
	for _, nested := range m.Mutators {
		deps = append(deps, nested.Dependencies()...)
	}
	return deps
}

// Path implements Group.
func (m AddFeature) Path() string { return m.Name }

// ApplyMutators implements Group.
func (m AddFeature) ApplyMutators(c *Character, source SourcePath) {
	c.Register(registerFeature{entry: FeatureEntry{Name: m.Name, Description: m.Description}}, source)
	for _, nested := range m.Mutators {
		c.Register(nested, source)
	}
}

func (m AddFeature) Apply(c *Character, source SourcePath) {
	source = source.Join(m.Name)
	c.Derived().AddFeature(FeatureEntry{Name: m.Name, Description: m.Description, Source: source})
	for _, nested := range m.Mutators {
		nested.Apply(c, source)
	}
}

type featureArgs struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Nodes       []Node `json:"mutators,omitempty" validate:"dive"`
}

func (featureArgs) ID() string                   { return "feature" }
func (featureArgs) Dependencies() []string       { return nil }
func (featureArgs) Apply(*Character, SourcePath) {}

var decodeFeatureArgs = DecodeFactory[featureArgs]()

func featureFactory(ctx FactoryContext, args map[string]any) (Mutator, error) {
	decoded, err := decodeFeatureArgs(ctx, args)
	if err != nil {
		return nil, err
	}
	raw := decoded.(featureArgs)
	out := AddFeature{Name: raw.Name, Description: raw.Description}
	for _, node := range raw.Nodes {
		nested, err := ctx.Registry.Parse(node, ctx.Source.Join(raw.Name))
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", raw.Name, err)
		}
		out.Mutators = append(out.Mutators, nested)
	}
	return out, nil
}

// SetFlag raises a named flag other content can test for.
type SetFlag struct {
	Name string `json:"name" validate:"required"`
}

func (SetFlag) ID() string             { return "flag" }
func (SetFlag) Dependencies() []string { return nil }

func (m SetFlag) Apply(c *Character, source SourcePath) {
	c.Derived().SetFlag(m.Name, source)
}

// AddSpellcasting registers a caster and the spells it always knows.
type AddSpellcasting struct {
	Caster  string            `json:"caster" validate:"required"`
	Ability Selector[Ability] `json:"ability"`
	Spells  []string          `json:"spells,omitempty"`
}

func (AddSpellcasting) ID() string             { return "spellcasting" }
func (AddSpellcasting) Dependencies() []string { return nil }

func (m AddSpellcasting) Apply(c *Character, source SourcePath) {
	ability, ok := ResolveSelector(c, m.Ability, source, ParseAbility)
	if !ok {
		return
	}
	c.Derived().AddCaster(m.Caster, ability, source)
	for _, spell := range m.Spells {
		c.Derived().AddSpell(m.Caster, ability, spell, source)
	}
}

// ApplyIf applies Then when Criteria holds and Else otherwise. Criteria is
// evaluated against the character after ability scores are finalized.
type ApplyIf struct {
	Criteria string
	Then     []Mutator
	Else     []Mutator
}

func (ApplyIf) ID() string { return "apply_if" }

func (m ApplyIf) Dependencies() []string {
	deps := []string{IDFinalizeAbilityScores}
	for _, nested := range append(append([]Mutator(nil), m.Then...), m.Else...) {
		deps = append(deps, nested.Dependencies()...)
	}
	return deps
}

func (m ApplyIf) Apply(c *Character, source SourcePath) {
	matched, err := c.evaluateCriteria(m.Criteria, source)
	if err != nil {
		c.Derived().AddDiagnostic(newDiagnostic(DiagnosticEvaluation, source, m.Criteria, err))
		return
	}
	branch := m.Else
	if matched {
		branch = m.Then
	}
	for _, nested := range branch {
		nested.Apply(c, source)
	}
}

type applyIfArgs struct {
	Criteria string `json:"criteria" validate:"required"`
	Then     []Node `json:"then,omitempty" validate:"dive"`
	Else     []Node `json:"else,omitempty" validate:"dive"`
}

func (applyIfArgs) ID() string                   { return "apply_if" }
func (applyIfArgs) Dependencies() []string       { return nil }
func (applyIfArgs) Apply(*Character, SourcePath) {}

var decodeApplyIfArgs = DecodeFactory[applyIfArgs]()

func applyIfFactory(ctx FactoryContext, args map[string]any) (Mutator, error) {
	decoded, err := decodeApplyIfArgs(ctx, args)
	if err != nil {
		return nil, err
	}
	raw := decoded.(applyIfArgs)
	out := ApplyIf{Criteria: raw.Criteria}
	for _, node := range raw.Then {
		nested, err := parseConditional(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("then: %w", err)
		}
		out.Then = append(out.Then, nested)
	}
	for _, node := range raw.Else {
		nested, err := parseConditional(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("else: %w", err)
		}
		out.Else = append(out.Else, nested)
	}
	return out, nil
}

func parseConditional(ctx FactoryContext, node Node) (Mutator, error) {
	nested, err := ctx.Registry.Parse(node, ctx.Source)
	if err != nil {
		return nil, err
	}
	if err := rejectAbilityScores(nested); err != nil {
		return nil, err
	}
	return nested, nil
}

// rejectAbilityScores walks m and the features it grants for mutators that
// feed the ability score finalizer.
func rejectAbilityScores(m Mutator) error {
	switch id := m.ID(); id {
	case IDAbilityScore, IDFinalizeAbilityScores:
		return fmt.Errorf("%w: %s", ErrConditionalAbilityScore, id)
	}
	feature, ok := m.(AddFeature)
	if !ok {
		return nil
	}
	var errs []error
	for _, nested := range feature.Mutators {
		errs = append(errs, rejectAbilityScores(nested))
	}
	return errors.Join(errs...)
}

// DefaultRegistry returns a registry holding every built-in node type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("ability_score", DecodeFactory[AddAbilityScore]()).
		MustRegister("ability_score_max", DecodeFactory[IncreaseAbilityScoreMax]()).
		MustRegister("ability_score_finalize", DecodeFactory[FinalizeAbilityScores]()).
		MustRegister("saving_throw", DecodeFactory[AddSavingThrow]()).
		MustRegister("skill", DecodeFactory[AddSkill]()).
		MustRegister("proficiency", DecodeFactory[AddProficiency]()).
		MustRegister("armor_class_formula", DecodeFactory[AddArmorClassFormula]()).
		MustRegister("armor_class_bonus", DecodeFactory[AddArmorClassBonus]()).
		MustRegister("max_hit_points", DecodeFactory[AddMaxHitPoints]()).
		MustRegister("defense", DecodeFactory[AddDefense]()).
		MustRegister("speed", DecodeFactory[AddSpeed]()).
		MustRegister("sense", DecodeFactory[AddSense]()).
		MustRegister("action", DecodeFactory[AddAction]()).
		MustRegister("action_budget", DecodeFactory[AddToActionBudget]()).
		MustRegister("rest_reset", DecodeFactory[AddRestReset]()).
		MustRegister("bonus_damage", DecodeFactory[BonusDamage]()).
		MustRegister("roll_modifier", DecodeFactory[AddRollModifier]()).
		MustRegister("feature", featureFactory).
		MustRegister("flag", DecodeFactory[SetFlag]()).
		MustRegister("spellcasting", DecodeFactory[AddSpellcasting]()).
		MustRegister("apply_if", applyIfFactory)
	return r
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
