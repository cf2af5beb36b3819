package sheet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type optimizerFixture struct {
	Cases []struct {
		Name    string `json:"name"`
		Base    uint   `json:"base"`
		Bonuses []struct {
			Value uint `json:"value"`
			Max   uint `json:"max"`
		} `json:"bonuses"`
		ExpectTotal   uint  `json:"expect_total"`
		ExpectWinners []int `json:"expect_winners"`
	} `json:"cases"`
}

type abilityScoreFixture struct {
	Cases []struct {
		Name     string `json:"name"`
		Maximum  uint   `json:"maximum"`
		Maximums []struct {
			Max    uint   `json:"max"`
			Source string `json:"source"`
		} `json:"maximums"`
		Bonuses []struct {
			Value    uint   `json:"value"`
			MaxTotal *uint  `json:"max_total"`
			Source   string `json:"source"`
		} `json:"bonuses"`
		ExpectTotal   uint   `json:"expect_total"`
		ExpectApplied []bool `json:"expect_applied"`
	} `json:"cases"`
}

func TestOptimizeMaxSumsFromFixture(t *testing.T) {
	var fx optimizerFixture
	loadFixture(t, "optimizer_cases.json", &fx)

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			bonuses := make([]CappedBonus, 0, len(tc.Bonuses))
			for idx, bonus := range tc.Bonuses {
				bonuses = append(bonuses, CappedBonus{Index: idx, Value: bonus.Value, Max: bonus.Max})
			}

			total, winners := OptimizeMaxSums(tc.Base, bonuses)

			if total != tc.ExpectTotal {
				t.Fatalf("expected total %d, got %d", tc.ExpectTotal, total)
			}
			if tc.ExpectWinners == nil {
				if winners != nil {
					t.Fatalf("expected no winners, got %v", winners)
				}
				return
			}
			if !reflect.DeepEqual(tc.ExpectWinners, winners) {
				t.Fatalf("expected winners %v, got %v", tc.ExpectWinners, winners)
			}
		})
	}
}

func TestAbilityScoreFinalizeFromFixture(t *testing.T) {
	var fx abilityScoreFixture
	loadFixture(t, "ability_scores.json", &fx)

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			score := NewAbilityScore(tc.Maximum)
			for _, maximum := range tc.Maximums {
				score.PushMaximum(maximum.Max, ParseSourcePath(maximum.Source))
			}
			for _, bonus := range tc.Bonuses {
				score.PushBonus(AbilityBonus{Value: bonus.Value, MaxTotal: bonus.MaxTotal}, ParseSourcePath(bonus.Source))
			}

			score.Finalize()

			if score.Total != tc.ExpectTotal {
				t.Fatalf("expected total %d, got %d", tc.ExpectTotal, score.Total)
			}
			applied := make([]bool, 0, len(score.Bonuses))
			for _, entry := range score.Bonuses {
				applied = append(applied, entry.Applied)
			}
			if !reflect.DeepEqual(tc.ExpectApplied, applied) {
				t.Fatalf("expected applied %v, got %v", tc.ExpectApplied, applied)
			}
		})
	}
}

func TestAbilityScoreFinalizeIsIdempotent(t *testing.T) {
	cap17 := uint(17)
	score := NewAbilityScore(DefaultMaximumScore)
	score.PushBonus(AbilityBonus{Value: 8}, NewSourcePath("Base Score"))
	for value := uint(1); value <= 5; value++ {
		score.PushBonus(AbilityBonus{Value: value, MaxTotal: &cap17}, NewSourcePath("Items", "Charm"))
	}

	score.Finalize()
	first := score.Total
	firstBonuses := append([]AbilityBonusEntry(nil), score.Bonuses...)

	score.Finalize()

	if score.Total != first || first != 17 {
		t.Fatalf("expected stable total 17, got %d then %d", first, score.Total)
	}
	if !reflect.DeepEqual(firstBonuses, score.Bonuses) {
		t.Fatalf("expected applied flags to stay the same")
	}
	if !score.Finalized() {
		t.Fatalf("expected score to be finalized")
	}
}

func TestAbilityScorePushResetsFinalized(t *testing.T) {
	score := NewAbilityScore(DefaultMaximumScore)
	score.PushBonus(AbilityBonus{Value: 10}, NewSourcePath("Base Score"))
	score.Finalize()

	score.PushBonus(AbilityBonus{Value: 2}, NewSourcePath("Feats", "Athlete"))
	if score.Finalized() {
		t.Fatalf("expected push to clear finalized")
	}
	score.Finalize()
	if score.Total != 12 {
		t.Fatalf("expected 12, got %d", score.Total)
	}
	if got := len(score.AppliedSources()); got != 2 {
		t.Fatalf("expected 2 applied sources, got %d", got)
	}
}

func TestModifier(t *testing.T) {
	cases := map[uint]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 15: 2, 20: 5, 30: 10}
	for score, want := range cases {
		if got := Modifier(score); got != want {
			t.Fatalf("Modifier(%d) = %d, want %d", score, got, want)
		}
	}
}

func loadFixture(t *testing.T, name string, out any) {
	t.Helper()
	payload, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
}
