package sheet

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSelectionsGetSetUnder(t *testing.T) {
	s := Selections{}
	language := NewSourcePath("Human").JoinHidden("language")
	skill := NewSourcePath("Human").JoinHidden("skill")

	s.Set(language, "elvish")
	s.Add(skill, "stealth")
	s.Set(NewSourcePath("Wizard").JoinHidden("cantrip"), "light")

	if got := s.Get(language); !reflect.DeepEqual(got, []string{"elvish"}) {
		t.Fatalf("unexpected values %v", got)
	}
	if first, ok := s.First(skill); !ok || first != "stealth" {
		t.Fatalf("unexpected first %q", first)
	}
	under := s.Under(NewSourcePath("Human"))
	if !reflect.DeepEqual(under.Paths(), []string{"Human/language", "Human/skill"}) {
		t.Fatalf("unexpected paths %v", under.Paths())
	}

	s.Set(language)
	if _, ok := s.First(language); ok {
		t.Fatalf("expected empty set to remove the key")
	}
}

func TestSelectorJSONForms(t *testing.T) {
	var fixed Selector[Ability]
	if err := json.Unmarshal([]byte(`"dexterity"`), &fixed); err != nil {
		t.Fatalf("unmarshal fixed: %v", err)
	}
	if fixed.IsChoice() || fixed.Value != Dexterity {
		t.Fatalf("unexpected fixed selector %+v", fixed)
	}

	var choice Selector[Ability]
	if err := json.Unmarshal([]byte(`{"id":"asi","options":["strength","wisdom"]}`), &choice); err != nil {
		t.Fatalf("unmarshal choice: %v", err)
	}
	if !choice.IsChoice() || !reflect.DeepEqual(choice.Options, []Ability{Strength, Wisdom}) {
		t.Fatalf("unexpected choice selector %+v", choice)
	}
	if got := choice.Path(NewSourcePath("Feats", "Resilient")).Data(); got != "Feats/Resilient/asi" {
		t.Fatalf("unexpected selection path %q", got)
	}

	payload, err := json.Marshal(fixed)
	if err != nil || string(payload) != `"dexterity"` {
		t.Fatalf("expected bare value, got %s (%v)", payload, err)
	}
	if err := json.Unmarshal([]byte(`12`), &fixed); err == nil {
		t.Fatalf("expected error for numeric selector")
	}
}

func TestResolveSelectorRecordsMissingChoice(t *testing.T) {
	c := New(Persistent{ID: "c1"})
	source := NewSourcePath("Feats", "Skilled")

	if _, ok := ResolveSelector(c, Choice[Skill]("skill"), source, ParseSkill); ok {
		t.Fatalf("expected unresolved choice")
	}
	missing := c.Derived().MissingSelections
	if len(missing) != 1 || missing[0].Data() != "Feats/Skilled/skill" {
		t.Fatalf("unexpected missing %v", missing)
	}

	value, ok := ResolveSelector(c, Fixed(Stealth), source, ParseSkill)
	if !ok || value != Stealth {
		t.Fatalf("expected fixed value, got %q", value)
	}
}
