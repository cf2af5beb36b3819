package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/activity"
	"github.com/goliatone/go-sheet/pkg/store"
)

type countingStore struct {
	store.Store[sheet.Persistent]
	saves int
}

func (s *countingStore) Save(ctx context.Context, ref store.Ref, p sheet.Persistent, meta store.Meta) (store.Meta, error) {
	s.saves++
	return s.Store.Save(ctx, ref, p, meta)
}

func newResolver(t *testing.T, opts ...sheet.Option) (store.Resolver, *countingStore, *activity.CaptureHook) {
	t.Helper()
	backing := &countingStore{Store: store.NewMemoryStore[sheet.Persistent]()}
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	return store.Resolver{Store: backing, Options: opts, Emitter: emitter}, backing, capture
}

func addStrength(value int) store.Mutator[sheet.Persistent] {
	return func(p *sheet.Persistent) error {
		if p.AbilityScores == nil {
			p.AbilityScores = map[sheet.Ability]uint{}
		}
		p.AbilityScores[sheet.Strength] += uint(value)
		return nil
	}
}

func TestResolverMutateCreatesSavesAndEmits(t *testing.T) {
	ctx := context.Background()
	resolver, backing, capture := newResolver(t)
	ref := store.Ref{TenantID: "t1", CharacterID: "c1"}

	c, meta, err := resolver.Mutate(ctx, ref, store.Meta{}, func(p *sheet.Persistent) error {
		p.Name = "Vex"
		p.AbilityScores = map[sheet.Ability]uint{sheet.Strength: 14}
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if c.AbilityScore(sheet.Strength) != 14 {
		t.Fatalf("expected compiled strength 14, got %d", c.AbilityScore(sheet.Strength))
	}
	if meta.ETag == "" || meta.SnapshotID == "" {
		t.Fatalf("expected stamped meta, got %+v", meta)
	}
	if backing.saves != 1 {
		t.Fatalf("expected 1 save, got %d", backing.saves)
	}

	if len(capture.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(capture.Events))
	}
	event := capture.Events[0]
	if event.Verb != activity.VerbCharacterSaved || event.CharacterID != "c1" || event.TenantID != "t1" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Metadata["snapshot_id"] != meta.SnapshotID {
		t.Fatalf("expected snapshot id %q in metadata, got %v", meta.SnapshotID, event.Metadata["snapshot_id"])
	}
	if fingerprint, _ := event.Metadata["fingerprint"].(string); fingerprint == "" {
		t.Fatalf("expected fingerprint in metadata")
	}

	loaded, loadedMeta, err := resolver.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Persistent().Name != "Vex" || loadedMeta.ETag != meta.ETag {
		t.Fatalf("unexpected loaded character %q meta %+v", loaded.Persistent().Name, loadedMeta)
	}
}

func TestResolverMutateChecksETag(t *testing.T) {
	ctx := context.Background()
	resolver, backing, _ := newResolver(t)
	ref := store.Ref{CharacterID: "c1"}

	first, err := mutate(resolver, ref, store.Meta{}, addStrength(10))
	if err != nil {
		t.Fatalf("first mutate: %v", err)
	}
	second, err := mutate(resolver, ref, store.Meta{ETag: first.ETag}, addStrength(2))
	if err != nil {
		t.Fatalf("second mutate: %v", err)
	}

	_, _, err = resolver.Mutate(ctx, ref, store.Meta{ETag: first.ETag}, addStrength(1))
	if !errors.Is(err, store.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
	if backing.saves != 2 {
		t.Fatalf("expected stale write to skip save, got %d saves", backing.saves)
	}

	c, meta, err := resolver.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ETag != second.ETag || c.AbilityScore(sheet.Strength) != 12 {
		t.Fatalf("expected second write to stand, got strength %d", c.AbilityScore(sheet.Strength))
	}
}

func TestResolverMutateRejectsInvalidCharacter(t *testing.T) {
	resolver, backing, capture := newResolver(t)

	_, err := mutate(resolver, store.Ref{CharacterID: "c1"}, store.Meta{}, func(p *sheet.Persistent) error {
		p.Classes = append(p.Classes, sheet.Class{Name: "Fighter", Level: 0})
		return nil
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if backing.saves != 0 || len(capture.Events) != 0 {
		t.Fatalf("expected no save and no event, got %d saves %d events", backing.saves, len(capture.Events))
	}
}

func TestResolverMutateRejectsIDChange(t *testing.T) {
	resolver, backing, _ := newResolver(t)
	_, err := mutate(resolver, store.Ref{CharacterID: "c1"}, store.Meta{}, func(p *sheet.Persistent) error {
		p.ID = "c2"
		return nil
	})
	if err == nil || backing.saves != 0 {
		t.Fatalf("expected id change to fail without saving, err=%v saves=%d", err, backing.saves)
	}
}

func TestResolverMutatePropagatesMutatorError(t *testing.T) {
	resolver, backing, _ := newResolver(t)
	boom := errors.New("boom")
	_, err := mutate(resolver, store.Ref{CharacterID: "c1"}, store.Meta{}, func(*sheet.Persistent) error { return boom })
	if !errors.Is(err, boom) || backing.saves != 0 {
		t.Fatalf("expected mutator error without save, err=%v saves=%d", err, backing.saves)
	}
}

func TestResolverMutateDoesNotSaveCyclicContent(t *testing.T) {
	dependsOn := func(id, dep string) sheet.Factory {
		return func(sheet.FactoryContext, map[string]any) (sheet.Mutator, error) {
			return sheet.MutatorFunc{Identity: id, Requires: []string{dep}}, nil
		}
	}
	registry := sheet.DefaultRegistry().
		MustRegister("loop_a", dependsOn("loop_a", "loop_b")).
		MustRegister("loop_b", dependsOn("loop_b", "loop_a"))
	resolver, backing, _ := newResolver(t, sheet.WithRegistry(registry))

	_, err := mutate(resolver, store.Ref{CharacterID: "c1"}, store.Meta{}, func(p *sheet.Persistent) error {
		p.Feats = append(p.Feats, sheet.Feature{
			Name:  "Paradox",
			Nodes: []sheet.Node{sheet.NewNode("loop_a", nil), sheet.NewNode("loop_b", nil)},
		})
		return nil
	})
	if !errors.Is(err, sheet.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency, got %v", err)
	}
	if backing.saves != 0 {
		t.Fatalf("expected no save, got %d", backing.saves)
	}
}

func TestResolverLoadMissing(t *testing.T) {
	resolver, _, _ := newResolver(t)
	_, _, err := resolver.Load(context.Background(), store.Ref{CharacterID: "ghost"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolverRequiresStore(t *testing.T) {
	var resolver store.Resolver
	if _, _, err := resolver.Load(context.Background(), store.Ref{CharacterID: "c1"}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func mutate(r store.Resolver, ref store.Ref, meta store.Meta, fn store.Mutator[sheet.Persistent]) (store.Meta, error) {
	_, saved, err := r.Mutate(context.Background(), ref, meta, fn)
	if err != nil {
		return store.Meta{}, fmt.Errorf("mutate %s: %w", ref.CharacterID, err)
	}
	return saved, nil
}
