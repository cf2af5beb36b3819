package sheet

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoEvaluator = errors.New("sheet: evaluator not configured")

// Snapshot returns the values criteria expressions can read:
//
//	abilities.strength      current score
//	modifiers.strength      current modifier
//	level                   total level
//	proficiency_bonus       bonus for level
//	classes.wizard          levels in a class
//	conditions, equipped, feats  lists of names
//	flags.<name>            true when raised
//
// Criteria run after ability scores are finalized, so scores are final.
func (c *Character) Snapshot() map[string]any {
	abilities := make(map[string]any, len(Abilities))
	modifiers := make(map[string]any, len(Abilities))
	for _, ability := range Abilities {
		score := c.Derived().Ability(ability)
		abilities[string(ability)] = int(score.Total)
		modifiers[string(ability)] = score.Modifier()
	}
	classes := map[string]any{}
	for _, class := range c.working.Classes {
		classes[strings.ToLower(class.Name)] = class.Level
	}
	conditions := make([]any, 0, len(c.working.Conditions))
	for _, condition := range c.working.Conditions {
		conditions = append(conditions, strings.ToLower(condition.Name))
	}
	equipped := []any{}
	for _, name := range c.working.EquippedItems() {
		equipped = append(equipped, strings.ToLower(name))
	}
	feats := make([]any, 0, len(c.working.Feats))
	for _, feat := range c.working.Feats {
		feats = append(feats, strings.ToLower(feat.Name))
	}
	flags := make(map[string]any, len(c.Derived().Flags))
	for flag := range c.Derived().Flags {
		flags[flag] = true
	}
	level := c.working.Level()
	return map[string]any{
		"abilities":         abilities,
		"modifiers":         modifiers,
		"level":             level,
		"proficiency_bonus": ProficiencyBonusForLevel(level),
		"classes":           classes,
		"conditions":        conditions,
		"equipped":          equipped,
		"feats":             feats,
		"flags":             flags,
	}
}

// evaluateCriteria runs expression against the character snapshot and
// coerces the result to a bool. A nil result counts as false.
func (c *Character) evaluateCriteria(expression string, source SourcePath) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, fmt.Errorf("sheet: criteria must not be empty")
	}
	evaluator := c.cfg.evaluator
	if evaluator == nil {
		return false, ErrNoEvaluator
	}
	engine := evaluatorEngineName(evaluator)
	ctx := RuleContext{Snapshot: c.Snapshot(), Source: source.Display()}

	start := time.Now()
	value, err := evaluator.Evaluate(ctx, expression)
	duration := time.Since(start)

	var matched bool
	if err == nil {
		matched, err = truthy(value)
	}
	err = criteriaError(engine, expression, ctx.Source, err)
	c.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		Source:   ctx.Source,
		Duration: duration,
		Result:   matched,
		Err:      err,
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func truthy(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("criteria returned %T, want bool", value)
	}
}
