package sheet

import "testing"

func TestAttributedValueKeepsLargestAndEverySource(t *testing.T) {
	var speed AttributedValue[int]
	speed.Push(30, NewSourcePath("Race", "Human"))
	speed.Push(25, NewSourcePath("Race", "Dwarf"))
	speed.Push(35, NewSourcePath("Items", "Boots"))

	value, ok := speed.Value()
	if !ok || value != 35 {
		t.Fatalf("expected 35, got %d (%v)", value, ok)
	}
	if got := len(speed.Sources()); got != 3 {
		t.Fatalf("expected 3 contributions, got %d", got)
	}
}

func TestAttributedValueSetOverrides(t *testing.T) {
	var budget AttributedValue[int]
	budget.Push(2, NewSourcePath("Classes", "Fighter"))
	budget.Set(1, NewSourcePath("Conditions", "Slowed"))
	if value, _ := budget.Value(); value != 1 {
		t.Fatalf("expected override to 1, got %d", value)
	}
}

func TestBoundedValue(t *testing.T) {
	cases := []struct {
		name   string
		bounds []Bound
		want   int
	}{
		{name: "empty", want: 0},
		{name: "largest_base_plus_additive", bounds: []Bound{
			{Kind: BoundBase, Amount: 60},
			{Kind: BoundBase, Amount: 120},
			{Kind: BoundAdditive, Amount: 30},
		}, want: 150},
		{name: "subtract", bounds: []Bound{
			{Kind: BoundBase, Amount: 60},
			{Kind: BoundSubtract, Amount: 20},
		}, want: 40},
		{name: "minimum_raises", bounds: []Bound{
			{Kind: BoundBase, Amount: 10},
			{Kind: BoundMinimum, Amount: 30},
		}, want: 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var value BoundedValue
			for _, bound := range tc.bounds {
				value.Insert(bound)
			}
			if got := value.Value(); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestMaxHitPointsAccumulatesBySource(t *testing.T) {
	var hp MaxHitPoints
	fighter := NewSourcePath("Classes", "Fighter")
	hp.Push(10, fighter)
	hp.Push(6, fighter)
	hp.Push(2, NewSourcePath("Feats", "Tough"))

	if hp.Value() != 18 {
		t.Fatalf("expected 18, got %d", hp.Value())
	}
	sources := hp.Sources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Source.Data() != "Classes/Fighter" || sources[0].Amount != 16 {
		t.Fatalf("unexpected first source %+v", sources[0])
	}
}

func TestMaxHitPointsSourcesKeepPushOrder(t *testing.T) {
	var hp MaxHitPoints
	hp.Push(2, NewSourcePath("Feats", "Tough"))
	hp.Push(10, NewSourcePath("Classes", "Fighter"))
	hp.Push(3, NewSourcePath("Background", "Soldier"))
	hp.Push(2, NewSourcePath("Feats", "Tough"))

	want := []string{"Feats/Tough", "Classes/Fighter", "Background/Soldier"}
	sources := hp.Sources()
	if len(sources) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(sources))
	}
	for i, path := range want {
		if got := sources[i].Source.Data(); got != path {
			t.Fatalf("source %d: expected %s, got %s", i, path, got)
		}
	}
	if sources[0].Amount != 4 {
		t.Fatalf("expected repeated source to accumulate to 4, got %d", sources[0].Amount)
	}
}

func TestProficientKeepsHighestRank(t *testing.T) {
	var skill Proficient
	skill.Push(ProficiencyFull, NewSourcePath("Background", "Sage"))
	skill.Push(ProficiencyHalf, NewSourcePath("Classes", "Bard"))
	skill.Push(ProficiencyExpertise, NewSourcePath("Classes", "Rogue"))

	if skill.Level != ProficiencyExpertise {
		t.Fatalf("expected expertise, got %s", skill.Level)
	}
	if len(skill.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(skill.Sources))
	}
	if got := skill.Level.Bonus(3); got != 6 {
		t.Fatalf("expected expertise bonus 6, got %d", got)
	}
}
