package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store intended for tests, examples and the
// CLI. Records are kept encoded, so loads never share state with saves.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	payload []byte
	meta    Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord{}}
}

func (s *MemoryStore[T]) Load(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, Meta{}, false, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	var snapshot T
	if err := json.Unmarshal(record.payload, &snapshot); err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return snapshot, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, saved, err := stamp(snapshot, meta, time.Now())
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.records[key]
	if err := checkETag(meta.ETag, current.meta.ETag, exists); err != nil {
		return Meta{}, err
	}
	s.records[key] = memoryRecord{payload: payload, meta: cloneMeta(saved)}
	return saved, nil
}

// Keys returns the stored identifiers sorted.
func (s *MemoryStore[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for key := range s.records {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
