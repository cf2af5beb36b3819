package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-sheet/pkg/store"
)

type record struct {
	Name  string            `json:"name"`
	Tags  []string          `json:"tags"`
	Notes map[string]string `json:"notes"`
}

func runStoreContract(t *testing.T, s store.Store[record]) {
	t.Helper()
	ctx := context.Background()
	ref := store.Ref{TenantID: "t1", CharacterID: "c1"}

	if _, _, ok, err := s.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing record, got ok=%v err=%v", ok, err)
	}

	original := record{Name: "Vex", Tags: []string{"rogue"}, Notes: map[string]string{"home": "Waterdeep"}}
	first, err := s.Save(ctx, ref, original, store.Meta{Extra: map[string]string{"actor": "u1"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ETag == "" || first.SnapshotID == "" || first.UpdatedAt.IsZero() {
		t.Fatalf("expected stamped meta, got %+v", first)
	}

	original.Tags[0] = "mutated"
	loaded, meta, ok, err := s.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Tags[0] != "rogue" {
		t.Fatalf("expected stored record to be isolated from the caller")
	}
	if meta.ETag != first.ETag || meta.SnapshotID != first.SnapshotID {
		t.Fatalf("expected loaded meta %+v, got %+v", first, meta)
	}
	if !meta.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected updated at %v, got %v", first.UpdatedAt, meta.UpdatedAt)
	}
	if !reflect.DeepEqual(meta.Extra, map[string]string{"actor": "u1"}) {
		t.Fatalf("unexpected extra %v", meta.Extra)
	}

	loaded.Name = "Vex the Bold"
	second, err := s.Save(ctx, ref, loaded, store.Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("conditional save: %v", err)
	}
	if second.ETag == first.ETag || second.SnapshotID == first.SnapshotID {
		t.Fatalf("expected new etag and snapshot id")
	}

	_, err = s.Save(ctx, ref, loaded, store.Meta{ETag: first.ETag})
	if !errors.Is(err, store.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch for stale etag, got %v", err)
	}

	other := store.Ref{CharacterID: "c1"}
	if _, _, ok, _ := s.Load(ctx, other); ok {
		t.Fatalf("expected tenant scoped key to be distinct")
	}
	if _, err := s.Save(ctx, store.Ref{}, loaded, store.Meta{}); err == nil {
		t.Fatalf("expected invalid ref error")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	s := store.NewMemoryStore[record]()
	runStoreContract(t, s)
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"tenant/t1/character/c1"}) {
		t.Fatalf("unexpected keys %v", got)
	}
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := store.NewMemoryStore[record]()
	if _, err := s.Save(ctx, store.Ref{CharacterID: "c1"}, record{}, store.Meta{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
