package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-sheet/pkg/activity"
	"github.com/goliatone/go-sheet/pkg/activity/usersink"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsCompiledEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildCharacterCompiledEvent(activity.CharacterEventInput{
		ActorID:     actorID.String(),
		TenantID:    tenantID.String(),
		CharacterID: "mira-1",
		Name:        "Mira",
		Mutators:    4,
		Channel:     "campaign",
		OccurredAt:  now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected empty user to map to uuid.Nil, got %s", record.UserID)
	}
	if record.Verb != activity.VerbCharacterCompiled || record.ObjectType != activity.ObjectTypeCharacter || record.ObjectID != "mira-1" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "campaign" {
		t.Fatalf("expected channel campaign got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["origin"] != "sheet.compile" {
		t.Fatalf("expected origin metadata got %v", record.Data["origin"])
	}
	if record.Data["name"] != "Mira" || record.Data["mutators"] != 4 {
		t.Fatalf("expected metadata passthrough got %v", record.Data)
	}
}

func TestHookNotifyFiltersVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Verbs: []string{activity.VerbSelectionMissing}}

	compiled := activity.BuildCharacterCompiledEvent(activity.CharacterEventInput{CharacterID: "c1"})
	missing := activity.BuildSelectionMissingEvent(activity.CharacterEventInput{CharacterID: "c1", MissingSelections: []string{"Elf/cantrip"}})
	if err := hook.Notify(context.Background(), compiled); err != nil {
		t.Fatalf("notify compiled: %v", err)
	}
	if err := hook.Notify(context.Background(), missing); err != nil {
		t.Fatalf("notify missing: %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].Verb != activity.VerbSelectionMissing {
		t.Fatalf("expected only the selection event, got %+v", sink.records)
	}
}

func TestHookNotifySkipsInvalidEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:        activity.VerbCharacterSaved,
		CharacterID: "1",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected one record with a default timestamp, got %+v", sink.records)
	}
}
