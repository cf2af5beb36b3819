package activity

import (
	"strings"
	"time"
)

// Verbs and object types emitted for characters.
const (
	VerbCharacterCompiled = "character.compiled"
	VerbSelectionMissing  = "character.selection.missing"
	VerbCharacterSaved    = "character.saved"
	ObjectTypeCharacter   = "character"

	originCompile = "sheet.compile"
	originStore   = "sheet.store"
)

// CharacterEventInput holds the fields shared by character events.
type CharacterEventInput struct {
	ActorID           string
	UserID            string
	TenantID          string
	CharacterID       string
	Name              string
	Level             int
	Mutators          int
	Diagnostics       int
	Duration          time.Duration
	Fingerprint       string
	MissingSelections []string
	SnapshotID        string
	Channel           string
	Metadata          map[string]any
	OccurredAt        time.Time
}

// BuildCharacterCompiledEvent reports a finished compile.
func BuildCharacterCompiledEvent(input CharacterEventInput) Event {
	event := buildCharacterEvent(VerbCharacterCompiled, originCompile, input)
	event.Metadata["mutators"] = input.Mutators
	event.Metadata["diagnostics"] = input.Diagnostics
	if input.Duration > 0 {
		event.Metadata["duration_ms"] = input.Duration.Milliseconds()
	}
	if input.Fingerprint != "" {
		event.Metadata["fingerprint"] = input.Fingerprint
	}
	return event
}

// BuildSelectionMissingEvent reports choices the player still has to make.
func BuildSelectionMissingEvent(input CharacterEventInput) Event {
	event := buildCharacterEvent(VerbSelectionMissing, originCompile, input)
	event.Metadata["missing_selections"] = append([]string{}, input.MissingSelections...)
	return event
}

// BuildCharacterSavedEvent reports a persisted character revision.
func BuildCharacterSavedEvent(input CharacterEventInput) Event {
	event := buildCharacterEvent(VerbCharacterSaved, originStore, input)
	if input.Fingerprint != "" {
		event.Metadata["fingerprint"] = input.Fingerprint
	}
	return event
}

func buildCharacterEvent(verb, origin string, input CharacterEventInput) Event {
	metadata := CopyMetadata(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		metadata["name"] = name
	}
	if input.Level > 0 {
		metadata["level"] = input.Level
	}
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = input.SnapshotID
	}

	return Event{
		Verb:        verb,
		CharacterID: strings.TrimSpace(input.CharacterID),
		ActorID:     strings.TrimSpace(input.ActorID),
		UserID:      strings.TrimSpace(input.UserID),
		TenantID:    strings.TrimSpace(input.TenantID),
		Channel:     strings.TrimSpace(input.Channel),
		Origin:      origin,
		Metadata:    metadata,
		OccurredAt:  input.OccurredAt,
	}
}
