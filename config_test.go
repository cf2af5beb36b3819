package sheet

import (
	"context"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Evaluator != EngineExpr || cfg.DefaultMaxScore != 20 || !cfg.ProgramCache {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StoreDialect != "sqlite" || cfg.ActivityChannel != "characters" {
		t.Fatalf("unexpected store/activity defaults %+v", cfg)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SHEET_EVALUATOR", "cel")
	t.Setenv("SHEET_DEFAULT_MAX_SCORE", "24")
	t.Setenv("SHEET_ACTIVITY_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Evaluator != EngineCEL || cfg.DefaultMaxScore != 24 || cfg.ActivityEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	c, err := Compile(context.Background(), Persistent{
		ID:            "c1",
		AbilityScores: map[Ability]uint{Strength: 18},
		Feats: []Feature{{Name: "Giant Blood", Nodes: []Node{
			NewNode("ability_score", map[string]any{"ability": "str", "value": 4}),
		}}},
	}, opts...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.AbilityScore(Strength) != 22 {
		t.Fatalf("expected configured maximum to allow 22, got %d", c.AbilityScore(Strength))
	}
}

func TestLoadConfigRejectsUnknownEngine(t *testing.T) {
	t.Setenv("SHEET_EVALUATOR", "lua")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewEvaluatorEngines(t *testing.T) {
	for _, engine := range []string{"", EngineExpr, EngineCEL} {
		evaluator, err := NewEvaluator(engine, EngineCache(NewMemoryProgramCache()), EngineFunctions(DefaultFunctions()))
		if err != nil {
			t.Fatalf("engine %q: %v", engine, err)
		}
		if evaluator == nil {
			t.Fatalf("engine %q: nil evaluator", engine)
		}
		if want := engine; want != "" && evaluator.Engine() != want {
			t.Fatalf("expected engine %q, got %q", want, evaluator.Engine())
		}
	}
	if _, err := NewEvaluator("lua"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}
