package sheet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
)

// DefenseEntry records one mitigation against a damage type.
type DefenseEntry struct {
	DamageType string     `json:"damage_type,omitempty"`
	Context    string     `json:"context,omitempty"`
	Source     SourcePath `json:"source"`
}

// BonusEntry is a flat bonus to attack rolls or damage.
type BonusEntry struct {
	Value   int        `json:"value"`
	Context string     `json:"context,omitempty"`
	Source  SourcePath `json:"source"`
}

// FeatureEntry is a registered feature.
type FeatureEntry struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Source      SourcePath `json:"source"`
}

// AttackProfile is the attack roll an action makes.
type AttackProfile struct {
	Kind          AttackKind   `json:"kind"`
	DamageType    string       `json:"damage_type,omitempty"`
	DamageBonuses []BonusEntry `json:"damage_bonuses,omitempty"`
}

// ActionEntry is something the character can do on their turn. Attack is
// nil for actions that make no attack roll.
type ActionEntry struct {
	Name        string         `json:"name"`
	Kind        ActionKind     `json:"kind"`
	Description string         `json:"description,omitempty"`
	Attack      *AttackProfile `json:"attack,omitempty"`
	Source      SourcePath     `json:"source"`
}

// RollModifierEntry grants advantage or disadvantage on a class of rolls.
// An empty Target on a saving throw modifier covers every save.
type RollModifierEntry struct {
	Modifier RollModifier     `json:"modifier"`
	Kind     RollModifierKind `json:"kind"`
	Target   string           `json:"target,omitempty"`
	Context  string           `json:"context,omitempty"`
	Source   SourcePath       `json:"source"`
}

// RestResetEntry records a resource restored by a rest.
type RestResetEntry struct {
	Resource string     `json:"resource"`
	Source   SourcePath `json:"source"`
}

// Caster is one spellcasting source.
type Caster struct {
	Name    string                 `json:"name"`
	Ability Ability                `json:"ability"`
	Source  SourcePath             `json:"source"`
	Spells  []Contribution[string] `json:"spells,omitempty"`
}

// ObjectRequest asks the object cache collaborator for ids needed at Source.
type ObjectRequest struct {
	IDs    []string   `json:"ids"`
	Source SourcePath `json:"source"`
}

// Derived is the compiled snapshot of a character. Every ledger records
// the source of each contribution. Once frozen, writes are ignored and
// counted.
type Derived struct {
	AbilityScores      map[Ability]*AbilityScore                   `json:"ability_scores"`
	SavingThrows       map[Ability]*Proficient                     `json:"saving_throws,omitempty"`
	Skills             map[Skill]*Proficient                       `json:"skills,omitempty"`
	Proficiencies      map[ProficiencyKind]map[string][]SourcePath `json:"proficiencies,omitempty"`
	Speeds             map[string]*AttributedValue[int]            `json:"speeds,omitempty"`
	Senses             map[string]*BoundedValue                    `json:"senses,omitempty"`
	Defenses           map[DefenseKind][]DefenseEntry              `json:"defenses,omitempty"`
	ArmorClass         ArmorClass                                  `json:"armor_class"`
	MaxHitPoints       MaxHitPoints                                `json:"max_hit_points"`
	AttackBonuses      []BonusEntry                                `json:"attack_bonuses,omitempty"`
	SpellDamageBonuses []BonusEntry                                `json:"spell_damage_bonuses,omitempty"`
	Features           []FeatureEntry                              `json:"features,omitempty"`
	Actions            []ActionEntry                               `json:"actions,omitempty"`
	ActionBudget       map[ActionKind]*AttributedValue[int]        `json:"action_budget,omitempty"`
	RestResets         map[Rest][]RestResetEntry                   `json:"rest_resets,omitempty"`
	Casters            map[string]*Caster                          `json:"casters,omitempty"`
	Flags              map[string][]SourcePath                     `json:"flags,omitempty"`
	MissingSelections  []SourcePath                                `json:"missing_selections,omitempty"`
	Diagnostics        []Diagnostic                                `json:"diagnostics,omitempty"`
	ObjectRequests     []ObjectRequest                             `json:"object_requests,omitempty"`
	RollModifiers      []RollModifierEntry                         `json:"roll_modifiers,omitempty"`

	maximumScore uint
	frozen       bool
	rejected     int
}

// NewDerived returns an empty snapshot whose abilities carry maximumScore.
func NewDerived(maximumScore uint) *Derived {
	if maximumScore == 0 {
		maximumScore = DefaultMaximumScore
	}
	d := &Derived{
		AbilityScores: make(map[Ability]*AbilityScore, len(Abilities)),
		SavingThrows:  map[Ability]*Proficient{},
		Skills:        map[Skill]*Proficient{},
		Proficiencies: map[ProficiencyKind]map[string][]SourcePath{},
		Speeds:        map[string]*AttributedValue[int]{},
		Senses:        map[string]*BoundedValue{},
		Defenses:      map[DefenseKind][]DefenseEntry{},
		ActionBudget:  map[ActionKind]*AttributedValue[int]{},
		RestResets:    map[Rest][]RestResetEntry{},
		Casters:       map[string]*Caster{},
		Flags:         map[string][]SourcePath{},
		maximumScore:  maximumScore,
	}
	for _, ability := range Abilities {
		score := NewAbilityScore(maximumScore)
		d.AbilityScores[ability] = &score
	}
	return d
}

// Freeze seals the snapshot. Later writes are dropped and counted.
func (d *Derived) Freeze() {
	d.frozen = true
}

// Frozen reports whether the snapshot is sealed.
func (d *Derived) Frozen() bool {
	return d.frozen
}

// RejectedWrites counts writes dropped after Freeze.
func (d *Derived) RejectedWrites() int {
	return d.rejected
}

func (d *Derived) sealed() bool {
	if d.frozen {
		d.rejected++
	}
	return d.frozen
}

// Ability returns the ledger for ability, creating it if needed. A frozen
// snapshot hands out a detached copy.
func (d *Derived) Ability(ability Ability) *AbilityScore {
	score, ok := d.AbilityScores[ability]
	if d.frozen {
		if !ok {
			fresh := NewAbilityScore(d.maximum())
			return &fresh
		}
		detached := *score
		detached.Bonuses = slices.Clone(score.Bonuses)
		detached.Maximums = slices.Clone(score.Maximums)
		return &detached
	}
	if !ok {
		fresh := NewAbilityScore(d.maximum())
		score = &fresh
		d.AbilityScores[ability] = score
	}
	return score
}

func (d *Derived) maximum() uint {
	if d.maximumScore == 0 {
		return DefaultMaximumScore
	}
	return d.maximumScore
}

// AbilityModifier returns the modifier of the current ability total.
func (d *Derived) AbilityModifier(ability Ability) int {
	return d.Ability(ability).Modifier()
}

// PushAbilityBonus adds a bonus to ability.
func (d *Derived) PushAbilityBonus(ability Ability, bonus AbilityBonus, source SourcePath) {
	if d.sealed() {
		return
	}
	d.Ability(ability).PushBonus(bonus, source)
}

// PushAbilityMaximum raises the cap of ability.
func (d *Derived) PushAbilityMaximum(ability Ability, maximum uint, source SourcePath) {
	if d.sealed() {
		return
	}
	d.Ability(ability).PushMaximum(maximum, source)
}

// FinalizeAbilities runs the optimizer for every ability.
func (d *Derived) FinalizeAbilities() {
	if d.sealed() {
		return
	}
	for _, ability := range Abilities {
		d.Ability(ability).Finalize()
	}
}

// PushSavingThrow records a saving throw proficiency.
func (d *Derived) PushSavingThrow(ability Ability, level ProficiencyLevel, source SourcePath) {
	if d.sealed() {
		return
	}
	entry, ok := d.SavingThrows[ability]
	if !ok {
		entry = &Proficient{}
		d.SavingThrows[ability] = entry
	}
	entry.Push(level, source)
}

// PushSkill records a skill proficiency.
func (d *Derived) PushSkill(skill Skill, level ProficiencyLevel, source SourcePath) {
	if d.sealed() {
		return
	}
	entry, ok := d.Skills[skill]
	if !ok {
		entry = &Proficient{}
		d.Skills[skill] = entry
	}
	entry.Push(level, source)
}

// PushProficiency records a language, armor, weapon or tool proficiency.
func (d *Derived) PushProficiency(kind ProficiencyKind, value string, source SourcePath) {
	value = strings.TrimSpace(value)
	if value == "" || d.sealed() {
		return
	}
	set, ok := d.Proficiencies[kind]
	if !ok {
		set = map[string][]SourcePath{}
		d.Proficiencies[kind] = set
	}
	set[value] = append(set[value], source)
}

// PushSpeed offers a movement speed. The fastest offer wins.
func (d *Derived) PushSpeed(kind string, feet int, source SourcePath) {
	if d.sealed() {
		return
	}
	entry, ok := d.Speeds[kind]
	if !ok {
		entry = &AttributedValue[int]{}
		d.Speeds[kind] = entry
	}
	entry.Push(feet, source)
}

// PushSense records a bound on a sense range.
func (d *Derived) PushSense(kind string, bound Bound) {
	if d.sealed() {
		return
	}
	entry, ok := d.Senses[kind]
	if !ok {
		entry = &BoundedValue{}
		d.Senses[kind] = entry
	}
	entry.Insert(bound)
}

// PushDefense records a resistance, immunity or vulnerability.
func (d *Derived) PushDefense(kind DefenseKind, entry DefenseEntry) {
	if d.sealed() {
		return
	}
	d.Defenses[kind] = append(d.Defenses[kind], entry)
}

// AddArmorClassFormula offers an alternative base armor class.
func (d *Derived) AddArmorClassFormula(formula ArmorClassFormula) {
	if d.sealed() {
		return
	}
	d.ArmorClass.Formulas = append(d.ArmorClass.Formulas, formula)
}

// AddArmorClassBonus adds a flat armor class bonus.
func (d *Derived) AddArmorClassBonus(bonus ArmorClassBonus) {
	if d.sealed() {
		return
	}
	d.ArmorClass.Bonuses = append(d.ArmorClass.Bonuses, bonus)
}

// PushMaxHitPoints adds to the hit point maximum.
func (d *Derived) PushMaxHitPoints(amount int, source SourcePath) {
	if d.sealed() {
		return
	}
	d.MaxHitPoints.Push(amount, source)
}

// PushAttackBonus records an attack roll bonus.
func (d *Derived) PushAttackBonus(entry BonusEntry) {
	if d.sealed() {
		return
	}
	d.AttackBonuses = append(d.AttackBonuses, entry)
}

// PushSpellDamageBonus records a spell damage bonus.
func (d *Derived) PushSpellDamageBonus(entry BonusEntry) {
	if d.sealed() {
		return
	}
	d.SpellDamageBonuses = append(d.SpellDamageBonuses, entry)
}

// AddFeature registers a feature.
func (d *Derived) AddFeature(entry FeatureEntry) {
	if d.sealed() {
		return
	}
	d.Features = append(d.Features, entry)
}

// AddAction registers an action.
func (d *Derived) AddAction(entry ActionEntry) {
	if d.sealed() {
		return
	}
	d.Actions = append(d.Actions, entry)
}

// PushDamageBonus attaches entry to the attack of every action match
// accepts and returns how many actions took it.
func (d *Derived) PushDamageBonus(entry BonusEntry, match func(ActionEntry) bool) int {
	if d.sealed() {
		return 0
	}
	attached := 0
	for i := range d.Actions {
		action := &d.Actions[i]
		if action.Attack == nil || !match(*action) {
			continue
		}
		action.Attack.DamageBonuses = append(action.Attack.DamageBonuses, entry)
		attached++
	}
	return attached
}

// PushRollModifier records advantage or disadvantage on a class of rolls.
func (d *Derived) PushRollModifier(entry RollModifierEntry) {
	if d.sealed() {
		return
	}
	d.RollModifiers = append(d.RollModifiers, entry)
}

// PushActionBudget offers a count for an action slot. The largest wins.
func (d *Derived) PushActionBudget(kind ActionKind, amount int, source SourcePath) {
	if d.sealed() {
		return
	}
	entry, ok := d.ActionBudget[kind]
	if !ok {
		entry = &AttributedValue[int]{}
		d.ActionBudget[kind] = entry
	}
	entry.Push(amount, source)
}

// AddRestReset registers a resource restored on rest.
func (d *Derived) AddRestReset(rest Rest, entry RestResetEntry) {
	if d.sealed() {
		return
	}
	d.RestResets[rest] = append(d.RestResets[rest], entry)
}

// AddCaster registers a spellcasting source. Registering the same name twice
// keeps the first ability and merges spells.
func (d *Derived) AddCaster(name string, ability Ability, source SourcePath) *Caster {
	caster, ok := d.Casters[name]
	if !ok && d.frozen {
		return &Caster{Name: name, Ability: ability, Source: source}
	}
	if !ok {
		caster = &Caster{Name: name, Ability: ability, Source: source}
		d.Casters[name] = caster
	}
	return caster
}

// AddSpell adds a spell to a caster's list.
func (d *Derived) AddSpell(casterName string, ability Ability, spell string, source SourcePath) {
	if d.sealed() {
		return
	}
	caster := d.AddCaster(casterName, ability, source)
	caster.Spells = append(caster.Spells, Contribution[string]{Source: source, Amount: spell})
}

// SetFlag raises a named flag.
func (d *Derived) SetFlag(flag string, source SourcePath) {
	if d.sealed() {
		return
	}
	d.Flags[flag] = append(d.Flags[flag], source)
}

// HasFlag reports whether any source raised flag.
func (d *Derived) HasFlag(flag string) bool {
	return len(d.Flags[flag]) > 0
}

// AddMissingSelection records a path still waiting for a user choice.
func (d *Derived) AddMissingSelection(path SourcePath) {
	if d.sealed() {
		return
	}
	for _, existing := range d.MissingSelections {
		if existing.Equal(path) {
			return
		}
	}
	d.MissingSelections = append(d.MissingSelections, path)
}

// AddDiagnostic records a recoverable problem.
func (d *Derived) AddDiagnostic(diagnostic Diagnostic) {
	if d.sealed() {
		return
	}
	d.Diagnostics = append(d.Diagnostics, diagnostic)
}

// RequestObjects asks the object cache collaborator to resolve ids.
func (d *Derived) RequestObjects(ids []string, source SourcePath) {
	if len(ids) == 0 || d.sealed() {
		return
	}
	d.ObjectRequests = append(d.ObjectRequests, ObjectRequest{
		IDs:    append([]string(nil), ids...),
		Source: source,
	})
}

// RequestedObjectIDs flattens the object requests, first occurrence wins.
func (d *Derived) RequestedObjectIDs() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, request := range d.ObjectRequests {
		for _, id := range request.IDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Fingerprint digests the canonical JSON form of the snapshot.
func (d *Derived) Fingerprint() (string, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
