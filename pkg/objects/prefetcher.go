// Package objects fetches the shared objects characters refer to and keeps
// them in a sheet.MemoryObjectCache, so the next compile can resolve them.
package objects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	sheet "github.com/goliatone/go-sheet"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned by fetchers for ids they do not know. A missing
// object is not fatal: it stays requested on the character.
var ErrNotFound = errors.New("objects: not found")

// DefaultConcurrency bounds parallel fetches when no limit is configured.
const DefaultConcurrency = 4

// maxRounds stops Resolve when fetched objects keep requesting more.
const maxRounds = 8

// Fetcher loads one object by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (sheet.Object, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (sheet.Object, error)

// Fetch implements Fetcher.
func (fn FetcherFunc) Fetch(ctx context.Context, id string) (sheet.Object, error) {
	if fn == nil {
		return sheet.Object{}, ErrNotFound
	}
	return fn(ctx, id)
}

// Result lists what one Fetch call did, ids sorted.
type Result struct {
	Fetched []string
	Missing []string
	Cached  []string
}

// Option configures a Prefetcher.
type Option func(*Prefetcher)

// WithConcurrency sets how many fetches may run at once.
func WithConcurrency(limit int) Option {
	return func(p *Prefetcher) {
		if limit > 0 {
			p.limit = limit
		}
	}
}

// WithCache fills an existing cache instead of a private one.
func WithCache(cache *sheet.MemoryObjectCache) Option {
	return func(p *Prefetcher) {
		if cache != nil {
			p.cache = cache
		}
	}
}

// Prefetcher fetches object ids concurrently. Concurrent requests for the
// same id share one fetch.
type Prefetcher struct {
	fetcher Fetcher
	cache   *sheet.MemoryObjectCache
	limit   int
	flight  singleflight.Group
}

// NewPrefetcher constructs a Prefetcher around fetcher.
func NewPrefetcher(fetcher Fetcher, opts ...Option) *Prefetcher {
	p := &Prefetcher{fetcher: fetcher, limit: DefaultConcurrency}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.cache == nil {
		p.cache = sheet.NewMemoryObjectCache()
	}
	return p
}

// Cache returns the cache the prefetcher fills. Compile characters with
// sheet.WithObjectCache(p.Cache()) so they see fetched objects.
func (p *Prefetcher) Cache() *sheet.MemoryObjectCache {
	return p.cache
}

// Option returns the compile option that reads from the prefetcher cache.
func (p *Prefetcher) Option() sheet.Option {
	return sheet.WithObjectCache(p.cache)
}

// Fetch loads every id not already cached. Ids the fetcher reports with
// ErrNotFound are listed as missing; any other error cancels the batch.
func (p *Prefetcher) Fetch(ctx context.Context, ids []string) (Result, error) {
	if p == nil || p.fetcher == nil {
		return Result{}, fmt.Errorf("objects: fetcher is required")
	}

	var (
		result Result
		mu     sync.Mutex
	)
	pending := map[string]struct{}{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := p.cache.Object(id); ok {
			result.Cached = append(result.Cached, id)
			continue
		}
		pending[id] = struct{}{}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.limit)
	for id := range pending {
		group.Go(func() error {
			found, err := p.fetchOne(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if found {
				result.Fetched = append(result.Fetched, id)
			} else {
				result.Missing = append(result.Missing, id)
			}
			return nil
		})
	}
	err := group.Wait()

	sort.Strings(result.Fetched)
	sort.Strings(result.Missing)
	sort.Strings(result.Cached)
	return result, err
}

func (p *Prefetcher) fetchOne(ctx context.Context, id string) (bool, error) {
	value, err, _ := p.flight.Do(strings.ToLower(id), func() (any, error) {
		if _, ok := p.cache.Object(id); ok {
			return true, nil
		}
		object, err := p.fetcher.Fetch(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("objects: fetch %q: %w", id, err)
		}
		if object.ID == "" {
			object.ID = id
		}
		p.cache.Put(object)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return value.(bool), nil
}

// Resolve fetches the objects c requested and recompiles it until no new
// object arrives. c must compile against Cache. Each id is fetched at most
// once per call; the result accumulates every round.
func (p *Prefetcher) Resolve(ctx context.Context, c *sheet.Character) (Result, error) {
	var total Result
	if c == nil {
		return total, fmt.Errorf("objects: character is required")
	}
	tried := map[string]struct{}{}
	for round := 0; round < maxRounds; round++ {
		var ids []string
		for _, id := range c.Derived().RequestedObjectIDs() {
			if _, ok := tried[id]; ok {
				continue
			}
			tried[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return total, nil
		}
		result, err := p.Fetch(ctx, ids)
		total.Fetched = append(total.Fetched, result.Fetched...)
		total.Missing = append(total.Missing, result.Missing...)
		total.Cached = append(total.Cached, result.Cached...)
		if err != nil {
			return total, err
		}
		// Ids that are cached yet still requested mean c reads another cache.
		if len(result.Fetched) == 0 {
			return total, nil
		}
		if err := c.Recompile(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}
