// Package activity fans character lifecycle events out to audit sinks.
package activity

import (
	"maps"
	"strings"
	"time"
)

// Event is one thing that happened to a character. Origin names the
// component that raised it, e.g. "sheet.compile". Identifiers are plain
// strings; sinks that need UUIDs parse them.
type Event struct {
	Verb        string
	CharacterID string
	ActorID     string
	UserID      string
	TenantID    string
	Channel     string
	Origin      string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Routable reports whether the event names both a verb and a character.
// Hooks drop events that are not routable.
func (e Event) Routable() bool {
	return strings.TrimSpace(e.Verb) != "" && strings.TrimSpace(e.CharacterID) != ""
}

// Normalize returns a trimmed copy of e with its own metadata map and a
// timestamp.
func (e Event) Normalize() Event {
	out := Event{
		Verb:        strings.TrimSpace(e.Verb),
		CharacterID: strings.TrimSpace(e.CharacterID),
		ActorID:     strings.TrimSpace(e.ActorID),
		UserID:      strings.TrimSpace(e.UserID),
		TenantID:    strings.TrimSpace(e.TenantID),
		Channel:     strings.TrimSpace(e.Channel),
		Origin:      strings.TrimSpace(e.Origin),
		Metadata:    CopyMetadata(e.Metadata),
		OccurredAt:  e.OccurredAt,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}

// CopyMetadata returns a shallow copy of src, or nil when src is empty.
func CopyMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
