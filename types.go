package sheet

import (
	"fmt"
	"strings"
)

// Ability names one of the six ability scores.
type Ability string

const (
	Strength     Ability = "strength"
	Dexterity    Ability = "dexterity"
	Constitution Ability = "constitution"
	Intelligence Ability = "intelligence"
	Wisdom       Ability = "wisdom"
	Charisma     Ability = "charisma"
)

// Abilities lists every ability in sheet order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

var abilityAbbreviations = map[string]Ability{
	"str": Strength,
	"dex": Dexterity,
	"con": Constitution,
	"int": Intelligence,
	"wis": Wisdom,
	"cha": Charisma,
}

// ParseAbility accepts full names and three letter abbreviations.
func ParseAbility(value string) (Ability, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if ability, ok := abilityAbbreviations[key]; ok {
		return ability, nil
	}
	for _, ability := range Abilities {
		if string(ability) == key {
			return ability, nil
		}
	}
	return "", fmt.Errorf("sheet: unknown ability %q", value)
}

// Abbreviation returns the upper case short form (STR, DEX, ...).
func (a Ability) Abbreviation() string {
	if len(a) < 3 {
		return strings.ToUpper(string(a))
	}
	return strings.ToUpper(string(a[:3]))
}

// Modifier converts a score into its ability modifier.
func Modifier(score uint) int {
	value := int(score) - 10
	if value < 0 {
		return (value - 1) / 2
	}
	return value / 2
}

// ProficiencyBonusForLevel returns the proficiency bonus at a character
// level: +2 at level 1, rising by one every four levels.
func ProficiencyBonusForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// Skill names a skill together with the ability it keys off.
type Skill string

const (
	Acrobatics     Skill = "acrobatics"
	AnimalHandling Skill = "animal_handling"
	Arcana         Skill = "arcana"
	Athletics      Skill = "athletics"
	Deception      Skill = "deception"
	History        Skill = "history"
	Insight        Skill = "insight"
	Intimidation   Skill = "intimidation"
	Investigation  Skill = "investigation"
	Medicine       Skill = "medicine"
	Nature         Skill = "nature"
	Perception     Skill = "perception"
	Performance    Skill = "performance"
	Persuasion     Skill = "persuasion"
	Religion       Skill = "religion"
	SleightOfHand  Skill = "sleight_of_hand"
	Stealth        Skill = "stealth"
	Survival       Skill = "survival"
)

var skillAbilities = map[Skill]Ability{
	Acrobatics:     Dexterity,
	AnimalHandling: Wisdom,
	Arcana:         Intelligence,
	Athletics:      Strength,
	Deception:      Charisma,
	History:        Intelligence,
	Insight:        Wisdom,
	Intimidation:   Charisma,
	Investigation:  Intelligence,
	Medicine:       Wisdom,
	Nature:         Intelligence,
	Perception:     Wisdom,
	Performance:    Charisma,
	Persuasion:     Charisma,
	Religion:       Intelligence,
	SleightOfHand:  Dexterity,
	Stealth:        Dexterity,
	Survival:       Wisdom,
}

// ParseSkill accepts snake case or spaced skill names.
func ParseSkill(value string) (Skill, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	skill := Skill(key)
	if _, ok := skillAbilities[skill]; !ok {
		return "", fmt.Errorf("sheet: unknown skill %q", value)
	}
	return skill, nil
}

// Ability returns the ability the skill is rolled with.
func (s Skill) Ability() Ability {
	return skillAbilities[s]
}

// ProficiencyLevel scales the proficiency bonus added to a check.
type ProficiencyLevel string

const (
	ProficiencyNone      ProficiencyLevel = "none"
	ProficiencyHalf      ProficiencyLevel = "half"
	ProficiencyFull      ProficiencyLevel = "full"
	ProficiencyExpertise ProficiencyLevel = "expertise"
)

var proficiencyRanks = map[ProficiencyLevel]int{
	ProficiencyNone:      0,
	ProficiencyHalf:      1,
	ProficiencyFull:      2,
	ProficiencyExpertise: 3,
}

// Rank orders levels so the strongest contribution wins.
func (l ProficiencyLevel) Rank() int {
	return proficiencyRanks[l]
}

// Bonus applies the level to a proficiency bonus.
func (l ProficiencyLevel) Bonus(proficiency int) int {
	switch l {
	case ProficiencyHalf:
		return proficiency / 2
	case ProficiencyFull:
		return proficiency
	case ProficiencyExpertise:
		return proficiency * 2
	default:
		return 0
	}
}

// ParseProficiencyLevel defaults an empty value to full proficiency.
func ParseProficiencyLevel(value string) (ProficiencyLevel, error) {
	key := ProficiencyLevel(strings.ToLower(strings.TrimSpace(value)))
	if key == "" {
		return ProficiencyFull, nil
	}
	if _, ok := proficiencyRanks[key]; !ok {
		return "", fmt.Errorf("sheet: unknown proficiency level %q", value)
	}
	return key, nil
}

// ProficiencyKind groups the non-skill proficiencies.
type ProficiencyKind string

const (
	ProficiencyLanguage ProficiencyKind = "language"
	ProficiencyArmor    ProficiencyKind = "armor"
	ProficiencyWeapon   ProficiencyKind = "weapon"
	ProficiencyTool     ProficiencyKind = "tool"
)

// DefenseKind distinguishes how a damage type is mitigated.
type DefenseKind string

const (
	Resistance    DefenseKind = "resistance"
	Immunity      DefenseKind = "immunity"
	Vulnerability DefenseKind = "vulnerability"
)

// Rest identifies the rest a resource resets on.
type Rest string

const (
	ShortRest Rest = "short"
	LongRest  Rest = "long"
)

// ActionKind identifies the action economy slot something uses.
type ActionKind string

const (
	ActionAction   ActionKind = "action"
	ActionBonus    ActionKind = "bonus_action"
	ActionReaction ActionKind = "reaction"
	ActionAttack   ActionKind = "attack"
)

// AttackKind is the kind of attack roll an action makes.
type AttackKind string

const (
	AttackMelee  AttackKind = "melee"
	AttackRanged AttackKind = "ranged"
	AttackSpell  AttackKind = "spell"
)

// RollModifier is advantage or disadvantage.
type RollModifier string

const (
	Advantage    RollModifier = "advantage"
	Disadvantage RollModifier = "disadvantage"
)

// RollModifierKind is the class of roll a modifier applies to.
type RollModifierKind string

const (
	RollAbility     RollModifierKind = "ability"
	RollSavingThrow RollModifierKind = "saving_throw"
	RollSkill       RollModifierKind = "skill"
)

// BundleKind orders the named groups a character is assembled from.
type BundleKind string

const (
	BundleLineage    BundleKind = "lineage"
	BundleRace       BundleKind = "race"
	BundleBackground BundleKind = "background"
	BundleUpbringing BundleKind = "upbringing"
)

// BundleKinds lists bundle kinds in traversal order.
var BundleKinds = []BundleKind{BundleLineage, BundleRace, BundleBackground, BundleUpbringing}

func (k BundleKind) rank() int {
	for i, kind := range BundleKinds {
		if kind == k {
			return i
		}
	}
	return len(BundleKinds)
}
