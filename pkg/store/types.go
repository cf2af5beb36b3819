package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrETagMismatch = errors.New("store: etag mismatch")
	ErrNotFound     = errors.New("store: character not found")
)

// Ref identifies one persisted character, optionally within a tenant.
type Ref struct {
	TenantID    string
	CharacterID string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one record for a single Ref. Save treats a non-empty
// meta.ETag as the expected current ETag and fails with ErrETagMismatch when
// the stored record differs. The returned Meta carries the new SnapshotID
// and ETag.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Mutator changes a record in place.
type Mutator[T any] func(*T) error

// Identifier returns the canonical storage key of the ref.
func (r Ref) Identifier() (string, error) {
	id := strings.TrimSpace(r.CharacterID)
	if id == "" {
		return "", fmt.Errorf("store: character id is required")
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("store: character id %q must not contain '/'", id)
	}
	tenant := strings.TrimSpace(r.TenantID)
	if tenant == "" {
		return "character/" + id, nil
	}
	if strings.Contains(tenant, "/") {
		return "", fmt.Errorf("store: tenant id %q must not contain '/'", tenant)
	}
	return fmt.Sprintf("tenant/%s/character/%s", tenant, id), nil
}

// stamp encodes snapshot and returns the payload with the meta it is saved
// under.
func stamp[T any](snapshot T, meta Meta, now time.Time) ([]byte, Meta, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("store: encode snapshot: %w", err)
	}
	out := cloneMeta(meta)
	out.ETag = ETag(payload)
	out.SnapshotID = uuid.NewString()
	out.UpdatedAt = now.UTC()
	return payload, out, nil
}

// ETag digests an encoded record.
func ETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func checkETag(expected, current string, exists bool) error {
	if expected == "" || !exists || expected == current {
		return nil
	}
	return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, current)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
