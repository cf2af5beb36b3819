package store

import (
	"context"
	"fmt"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/activity"
)

// Resolver turns stored records into compiled characters.
type Resolver struct {
	Store Store[sheet.Persistent]
	// Options are passed to every compile.
	Options []sheet.Option
	// Emitter receives character.saved after a successful Mutate.
	Emitter *activity.Emitter
}

// Load compiles the stored record of ref.
func (r Resolver) Load(ctx context.Context, ref Ref) (*sheet.Character, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("store: store is required")
	}
	p, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("store: load %q: %w", ref.CharacterID, err)
	}
	if !ok {
		return nil, Meta{}, fmt.Errorf("%w: %q", ErrNotFound, ref.CharacterID)
	}
	c, err := sheet.Compile(ctx, p, r.Options...)
	if err != nil {
		return nil, meta, fmt.Errorf("store: compile %q: %w", ref.CharacterID, err)
	}
	return c, meta, nil
}

// Mutate loads one record, applies fn, validates and compiles the result,
// then saves it. meta.ETag, when set, must match the stored record. A
// missing record starts from an empty character carrying ref's id.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[sheet.Persistent]) (*sheet.Character, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("store: store is required")
	}
	if ref.CharacterID == "" {
		return nil, Meta{}, fmt.Errorf("store: character id is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("store: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("store: load %q: %w", ref.CharacterID, err)
	}
	if !ok {
		snapshot = sheet.Persistent{ID: ref.CharacterID}
		loadedMeta = Meta{}
	}

	if err := checkETag(meta.ETag, loadedMeta.ETag, loadedMeta.ETag != ""); err != nil {
		return nil, loadedMeta, err
	}

	if err := fn(&snapshot); err != nil {
		return nil, loadedMeta, err
	}
	if snapshot.ID != ref.CharacterID {
		return nil, loadedMeta, fmt.Errorf("store: mutator changed character id from %q to %q", ref.CharacterID, snapshot.ID)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, loadedMeta, err
	}

	c, err := sheet.Compile(ctx, snapshot, r.Options...)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("store: compile %q: %w", ref.CharacterID, err)
	}

	savedMeta, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("store: save %q: %w", ref.CharacterID, err)
	}

	if r.Emitter.Enabled() {
		input := activity.CharacterEventInput{
			TenantID:    ref.TenantID,
			CharacterID: ref.CharacterID,
			Name:        snapshot.Name,
			Level:       snapshot.Level(),
			SnapshotID:  savedMeta.SnapshotID,
		}
		if fingerprint, err := c.Derived().Fingerprint(); err == nil {
			input.Fingerprint = fingerprint
		}
		if err := r.Emitter.Emit(ctx, activity.BuildCharacterSavedEvent(input)); err != nil {
			return c, savedMeta, fmt.Errorf("store: emit saved event: %w", err)
		}
	}
	return c, savedMeta, nil
}
