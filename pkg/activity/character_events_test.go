package activity

import (
	"context"
	"testing"
	"time"
)

func TestBuildCharacterCompiledEvent(t *testing.T) {
	occurred := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	event := BuildCharacterCompiledEvent(CharacterEventInput{
		ActorID:     " actor ",
		CharacterID: " char-1 ",
		Name:        "Mira",
		Level:       3,
		Mutators:    12,
		Diagnostics: 1,
		Duration:    1500 * time.Microsecond,
		Fingerprint: "abc",
		Metadata:    map[string]any{"campaign": "tomb"},
		OccurredAt:  occurred,
	})

	if event.Verb != VerbCharacterCompiled || event.Origin != originCompile || event.CharacterID != "char-1" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Metadata["mutators"] != 12 || event.Metadata["diagnostics"] != 1 {
		t.Fatalf("unexpected counters: %+v", event.Metadata)
	}
	if event.Metadata["duration_ms"] != int64(1) {
		t.Fatalf("unexpected duration: %+v", event.Metadata["duration_ms"])
	}
	if event.Metadata["fingerprint"] != "abc" || event.Metadata["name"] != "Mira" || event.Metadata["level"] != 3 {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	if event.Metadata["campaign"] != "tomb" {
		t.Fatalf("expected caller metadata kept: %+v", event.Metadata)
	}
	if !event.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred_at preserved, got %v", event.OccurredAt)
	}
}

func TestBuildSelectionMissingEventCopiesPaths(t *testing.T) {
	paths := []string{"Elf/cantrip"}
	event := BuildSelectionMissingEvent(CharacterEventInput{CharacterID: "char-1", MissingSelections: paths})
	got, ok := event.Metadata["missing_selections"].([]string)
	if !ok || len(got) != 1 || got[0] != "Elf/cantrip" {
		t.Fatalf("unexpected missing selections: %+v", event.Metadata)
	}
	got[0] = "changed"
	if paths[0] != "Elf/cantrip" {
		t.Fatalf("expected input paths untouched")
	}
}

func TestBuildCharacterSavedEvent(t *testing.T) {
	event := BuildCharacterSavedEvent(CharacterEventInput{CharacterID: "c1", SnapshotID: "snap-9", Fingerprint: "f00"})
	if event.Verb != VerbCharacterSaved || event.CharacterID != "c1" || event.Origin != originStore {
		t.Fatalf("unexpected saved event %+v", event)
	}
	if event.Metadata["snapshot_id"] != "snap-9" || event.Metadata["fingerprint"] != "f00" {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
}

func TestCharacterEventWithoutIDIsDropped(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if err := emitter.Emit(context.Background(), BuildCharacterCompiledEvent(CharacterEventInput{})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected event without character id to be dropped, got %d", len(capture.Events))
	}
}
