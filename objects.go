package sheet

import (
	"sort"
	"strings"
	"sync"
)

// Object is shared content a character refers to by id, such as a spell
// list or a magic item definition.
type Object struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Kind     string    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name     string    `json:"name" yaml:"name" validate:"required"`
	Nodes    []Node    `json:"mutators,omitempty" yaml:"mutators,omitempty" validate:"dive"`
	Features []Feature `json:"features,omitempty" yaml:"features,omitempty" validate:"dive"`
}

// Path implements Group.
func (o Object) Path() string { return o.Name }

// ApplyMutators implements Group.
func (o Object) ApplyMutators(c *Character, source SourcePath) {
	c.ApplyNodes(o.Nodes, source)
	for _, feature := range o.Features {
		c.ApplyFrom(feature, source)
	}
}

// ObjectCache is read synchronously while compiling. Fetching is a separate
// step: ids the compile could not resolve are listed in
// Derived.ObjectRequests and a later compile picks them up.
type ObjectCache interface {
	Object(id string) (Object, bool)
}

// MemoryObjectCache is an in-process ObjectCache.
type MemoryObjectCache struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryObjectCache constructs a cache holding objects.
func NewMemoryObjectCache(objects ...Object) *MemoryObjectCache {
	cache := &MemoryObjectCache{objects: make(map[string]Object, len(objects))}
	for _, object := range objects {
		cache.Put(object)
	}
	return cache
}

// Object implements ObjectCache.
func (c *MemoryObjectCache) Object(id string) (Object, bool) {
	if c == nil {
		return Object{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	object, ok := c.objects[normalizeObjectID(id)]
	return object, ok
}

// Put stores object, replacing any object with the same id.
func (c *MemoryObjectCache) Put(object Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.objects == nil {
		c.objects = map[string]Object{}
	}
	c.objects[normalizeObjectID(object.ID)] = object
}

// IDs returns the cached ids sorted.
func (c *MemoryObjectCache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.objects))
	for id := range c.objects {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normalizeObjectID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
