// Package usersink forwards character activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"slices"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-sheet/pkg/activity"
)

// Hook adapts activity events to a go-users ActivitySink. When Verbs is set
// only those verbs are forwarded.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	if !event.Routable() {
		return nil
	}
	event = event.Normalize()
	if len(h.Verbs) > 0 && !slices.Contains(h.Verbs, event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record converts a normalized event into the go-users record shape.
// Identifiers that are not UUIDs map to uuid.Nil. The character id is kept
// verbatim as ObjectID and the origin lands in Data.
func Record(event activity.Event) usertypes.ActivityRecord {
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: activity.ObjectTypeCharacter,
		ObjectID:   event.CharacterID,
		Channel:    event.Channel,
		Data:       activity.CopyMetadata(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if event.Origin != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["origin"] = event.Origin
	}
	return record
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
