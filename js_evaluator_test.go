//go:build js_eval

package sheet

import (
	"errors"
	"testing"
)

func TestJSEvaluator(t *testing.T) {
	evaluator, err := NewEvaluator(EngineJS, EngineFunctions(DefaultFunctions()))
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	if evaluator.Engine() != EngineJS {
		t.Fatalf("expected js engine, got %q", evaluator.Engine())
	}

	snapshot := map[string]any{"level": 5, "abilities": map[string]any{"strength": 16, "wisdom": 9}}
	cases := []struct {
		criteria string
		want     bool
	}{
		{"modifier(abilities.strength) >= 3 && level >= 5", true},
		{`call("modifier", abilities.wisdom) < 0`, true},
		{"level > 5", false},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(RuleContext{Snapshot: snapshot}, tc.criteria)
		if err != nil {
			t.Fatalf("%s: %v", tc.criteria, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.criteria, tc.want, got)
		}
	}

	_, err = evaluator.Evaluate(RuleContext{Snapshot: snapshot, Source: "Feats/Broken"}, "level >=")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != EngineJS || evalErr.Criteria != "level >=" {
		t.Fatalf("unexpected evaluation error %+v", evalErr)
	}
}

func TestCompileApplyIfWithJSEvaluator(t *testing.T) {
	node := NewNode("apply_if", map[string]any{
		"criteria": "modifier(abilities.strength) >= 2 && level >= 1",
		"then":     []any{map[string]any{"type": "flag", "args": map[string]any{"name": "mighty"}}},
		"else":     []any{map[string]any{"type": "flag", "args": map[string]any{"name": "feeble"}}},
	})
	option := WithEvaluator(NewJSEvaluator(EngineFunctions(DefaultFunctions())))

	for strength, flag := range map[uint]string{15: "mighty", 9: "feeble"} {
		p := Persistent{
			ID:            "c1",
			AbilityScores: map[Ability]uint{Strength: strength},
			Classes:       []Class{{Name: "Fighter", Level: 1}},
			Feats:         []Feature{{Name: "Powerful Build", Nodes: []Node{node}}},
		}
		c := mustCompile(t, p, option)
		if !c.Derived().HasFlag(flag) {
			t.Fatalf("strength %d: expected %s flag, got %v (%+v)", strength, flag, c.Derived().Flags, c.Diagnostics())
		}
	}
}
