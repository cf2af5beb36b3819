package sheet

import (
	"sort"
	"strings"
)

// MutatorEntry is a mutator waiting in the queue together with the source
// path of the object that contributed it.
type MutatorEntry struct {
	ID           string
	Source       SourcePath
	Dependencies []string
	Mutator      Mutator

	requires map[string]struct{}
}

// NewMutatorEntry snapshots the identity and dependencies of m.
func NewMutatorEntry(m Mutator, source SourcePath) MutatorEntry {
	return normalizeEntry(MutatorEntry{
		ID:           m.ID(),
		Source:       source,
		Dependencies: m.Dependencies(),
		Mutator:      m,
	})
}

// Requires reports whether the entry declared a dependency on id.
func (e MutatorEntry) Requires(id string) bool {
	_, ok := e.requires[id]
	return ok
}

// HasDependencies reports whether the entry declared any dependency.
func (e MutatorEntry) HasDependencies() bool {
	return len(e.requires) > 0
}

// MutatorQueue keeps pending mutators in an order that satisfies every
// declared dependency. Entries without dependencies always lead.
type MutatorQueue struct {
	entries []MutatorEntry
}

// Len returns the number of queued entries.
func (q *MutatorQueue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the queue in execution order.
func (q *MutatorQueue) Entries() []MutatorEntry {
	return append([]MutatorEntry(nil), q.entries...)
}

// IDs returns the identities in execution order.
func (q *MutatorQueue) IDs() []string {
	out := make([]string, 0, len(q.entries))
	for _, entry := range q.entries {
		out = append(out, entry.ID)
	}
	return out
}

// Reset empties the queue.
func (q *MutatorQueue) Reset() {
	q.entries = nil
}

// Drain returns the queued entries in order and empties the queue.
func (q *MutatorQueue) Drain() []MutatorEntry {
	out := q.entries
	q.entries = nil
	return out
}

// Insert places incoming so every dependency relationship with the queued
// entries holds. Two entries requiring each other produce a
// *CyclicDependencyError and leave the queue unchanged.
func (q *MutatorQueue) Insert(incoming MutatorEntry) error {
	if incoming.requires == nil && len(incoming.Dependencies) > 0 {
		incoming = normalizeEntry(incoming)
	}
	hasDeps := incoming.HasDependencies()

	free := 0
	for free < len(q.entries) && !q.entries[free].HasDependencies() {
		free++
	}

	lo, hi := 0, len(q.entries)
	if hasDeps {
		lo = free
	} else {
		hi = free
	}
	for idx := free; hasDeps && idx < len(q.entries); idx++ {
		existing := q.entries[idx]
		needsExisting := incoming.Requires(existing.ID)
		neededBy := existing.Requires(incoming.ID)
		switch {
		case needsExisting && neededBy:
			return &CyclicDependencyError{A: existing.ID, B: incoming.ID, Path: []string{existing.ID, incoming.ID}}
		case needsExisting:
			lo = max(lo, idx+1)
		case neededBy:
			hi = min(hi, idx)
		}
	}

	if lo > hi {
		return q.rebuild(incoming, lo)
	}

	pos := sort.Search(len(q.entries), func(i int) bool {
		return compareEntries(q.entries[i], incoming) > 0
	})
	pos = min(max(pos, lo), hi)

	q.entries = append(q.entries, MutatorEntry{})
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = incoming
	return nil
}

// compareEntries orders existing relative to incoming: negative when
// existing runs first, positive when incoming runs first. Equal identities
// keep registration order.
func compareEntries(existing, incoming MutatorEntry) int {
	switch {
	case !existing.HasDependencies() && !incoming.HasDependencies():
		return identityOrder(existing.ID, incoming.ID)
	case existing.HasDependencies() && !incoming.HasDependencies():
		return 1
	case !existing.HasDependencies() && incoming.HasDependencies():
		return -1
	}
	if existing.Requires(incoming.ID) {
		return 1
	}
	if incoming.Requires(existing.ID) {
		return -1
	}
	return identityOrder(existing.ID, incoming.ID)
}

func identityOrder(existing, incoming string) int {
	if c := strings.Compare(existing, incoming); c != 0 {
		return c
	}
	return -1
}

// rebuild handles an incoming entry whose requirements sit after entries
// that require it. The queue is re-sorted topologically, preferring the
// current order, with incoming seeded at position at.
func (q *MutatorQueue) rebuild(incoming MutatorEntry, at int) error {
	seeded := make([]MutatorEntry, 0, len(q.entries)+1)
	seeded = append(seeded, q.entries[:at]...)
	seeded = append(seeded, incoming)
	seeded = append(seeded, q.entries[at:]...)

	ordered, cycle := topologicalOrder(seeded)
	if cycle != nil {
		return cycle
	}
	q.entries = ordered
	return nil
}

// topologicalOrder runs Kahn's algorithm picking, among ready entries, the
// dependency-free ones first and then the lowest seeded position.
func topologicalOrder(seeded []MutatorEntry) ([]MutatorEntry, *CyclicDependencyError) {
	n := len(seeded)
	successors := make([][]int, n)
	indegree := make([]int, n)
	for a := range seeded {
		if !seeded[a].HasDependencies() {
			continue
		}
		for b := range seeded {
			if a == b || !seeded[a].Requires(seeded[b].ID) {
				continue
			}
			successors[b] = append(successors[b], a)
			indegree[a]++
		}
	}

	done := make([]bool, n)
	out := make([]MutatorEntry, 0, n)
	for len(out) < n {
		next := -1
		for idx := range seeded {
			if done[idx] || indegree[idx] > 0 {
				continue
			}
			if next == -1 || (!seeded[idx].HasDependencies() && seeded[next].HasDependencies()) {
				next = idx
			}
		}
		if next == -1 {
			return nil, findCycle(seeded, done)
		}
		done[next] = true
		out = append(out, seeded[next])
		for _, succ := range successors[next] {
			indegree[succ]--
		}
	}
	return out, nil
}

// findCycle walks requirements among the unresolved entries until one
// repeats and reports the loop.
func findCycle(seeded []MutatorEntry, done []bool) *CyclicDependencyError {
	start := -1
	for idx := range seeded {
		if !done[idx] {
			start = idx
			break
		}
	}
	visited := map[int]int{}
	var trail []int
	current := start
	for current >= 0 {
		if at, seen := visited[current]; seen {
			loop := trail[at:]
			path := make([]string, 0, len(loop)+1)
			for i := len(loop) - 1; i >= 0; i-- {
				path = append(path, seeded[loop[i]].ID)
			}
			path = append(path, path[0])
			return &CyclicDependencyError{A: path[0], B: path[1], Path: path}
		}
		visited[current] = len(trail)
		trail = append(trail, current)
		next := -1
		for idx := range seeded {
			if idx != current && !done[idx] && seeded[current].Requires(seeded[idx].ID) {
				next = idx
				break
			}
		}
		current = next
	}
	id := seeded[start].ID
	return &CyclicDependencyError{A: id, B: id, Path: []string{id, id}}
}

func normalizeEntry(entry MutatorEntry) MutatorEntry {
	deps := entry.Dependencies
	entry.Dependencies = nil
	entry.requires = nil
	for _, dep := range deps {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if entry.requires == nil {
			entry.requires = map[string]struct{}{}
		}
		if _, dup := entry.requires[dep]; dup {
			continue
		}
		entry.requires[dep] = struct{}{}
		entry.Dependencies = append(entry.Dependencies, dep)
	}
	sort.Strings(entry.Dependencies)
	return entry
}
