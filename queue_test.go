package sheet

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func entry(id string, deps ...string) MutatorEntry {
	return NewMutatorEntry(MutatorFunc{Identity: id, Requires: deps}, NewSourcePath("Test"))
}

func insertAll(t *testing.T, entries ...MutatorEntry) *MutatorQueue {
	t.Helper()
	var q MutatorQueue
	for _, e := range entries {
		if err := q.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}
	return &q
}

func assertOrder(t *testing.T, q *MutatorQueue) {
	t.Helper()
	ids := q.IDs()
	position := map[string]int{}
	for idx, id := range ids {
		if _, seen := position[id]; !seen {
			position[id] = idx
		}
	}
	for idx, e := range q.Entries() {
		for _, dep := range e.Dependencies {
			for other, id := range ids {
				if id == dep && other > idx {
					t.Fatalf("%s at %d runs before its dependency %s at %d (%v)", e.ID, idx, dep, other, ids)
				}
			}
		}
	}
}

func TestQueueDependencyOrderIgnoresRegistrationOrder(t *testing.T) {
	orders := map[string][]MutatorEntry{
		"dependency_first": {entry("a"), entry("b", "a")},
		"dependent_first":  {entry("b", "a"), entry("a")},
	}
	for name, entries := range orders {
		t.Run(name, func(t *testing.T) {
			q := insertAll(t, entries...)
			if got := q.IDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
				t.Fatalf("expected [a b], got %v", got)
			}
		})
	}
}

func TestQueueChainsInAnyOrder(t *testing.T) {
	permutations := [][]MutatorEntry{
		{entry("ability_score"), entry("ability_score_finalize", "ability_score"), entry("max_hit_points", "ability_score_finalize"), entry("armor_class")},
		{entry("max_hit_points", "ability_score_finalize"), entry("ability_score_finalize", "ability_score"), entry("armor_class"), entry("ability_score")},
		{entry("ability_score_finalize", "ability_score"), entry("max_hit_points", "ability_score_finalize"), entry("ability_score"), entry("armor_class")},
		{entry("max_hit_points", "ability_score_finalize"), entry("ability_score"), entry("ability_score_finalize", "ability_score"), entry("armor_class")},
	}
	for _, entries := range permutations {
		q := insertAll(t, entries...)
		assertOrder(t, q)
		ids := q.IDs()
		if ids[0] != "ability_score" && ids[0] != "armor_class" {
			t.Fatalf("expected dependency-free entries first, got %v", ids)
		}
		if ids[len(ids)-1] != "max_hit_points" {
			t.Fatalf("expected max_hit_points last, got %v", ids)
		}
	}
}

func TestQueueDependencyFreeEntriesLead(t *testing.T) {
	q := insertAll(t, entry("z", "x"), entry("y"), entry("x"), entry("w", "nothing"))
	ids := q.IDs()
	if !reflect.DeepEqual(ids[:2], []string{"x", "y"}) {
		t.Fatalf("expected dependency-free prefix [x y], got %v", ids)
	}
	assertOrder(t, q)
}

func TestQueueSameIdentityKeepsRegistrationOrder(t *testing.T) {
	first := NewMutatorEntry(MutatorFunc{Identity: "skill"}, NewSourcePath("Race"))
	second := NewMutatorEntry(MutatorFunc{Identity: "skill"}, NewSourcePath("Class"))
	q := insertAll(t, first, second)

	entries := q.Entries()
	if entries[0].Source.Display() != "Race" || entries[1].Source.Display() != "Class" {
		t.Fatalf("expected registration order, got %s then %s", entries[0].Source, entries[1].Source)
	}
}

func TestQueueDirectCycle(t *testing.T) {
	var q MutatorQueue
	if err := q.Insert(entry("a", "b")); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	err := q.Insert(entry("b", "a"))
	if err == nil {
		t.Fatalf("expected cyclic dependency error")
	}
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	var cyclic *CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected *CyclicDependencyError, got %T", err)
	}
	pair := []string{cyclic.A, cyclic.B}
	if !reflect.DeepEqual(pair, []string{"a", "b"}) {
		t.Fatalf("expected pair [a b], got %v", pair)
	}
	if q.Len() != 1 {
		t.Fatalf("expected queue unchanged, got %v", q.IDs())
	}
}

func TestQueueTransitiveCycle(t *testing.T) {
	var q MutatorQueue
	for _, e := range []MutatorEntry{entry("a", "b"), entry("b", "c")} {
		if err := q.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}
	err := q.Insert(entry("c", "a"))
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	var cyclic *CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected *CyclicDependencyError, got %T", err)
	}
	if len(cyclic.Path) != 4 || cyclic.Path[0] != cyclic.Path[len(cyclic.Path)-1] {
		t.Fatalf("expected closed path of 3 entries, got %v", cyclic.Path)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}

func TestQueueDrainEmpties(t *testing.T) {
	q := insertAll(t, entry("b", "a"), entry("a"))
	drained := q.Drain()
	if len(drained) != 2 || q.Len() != 0 {
		t.Fatalf("expected 2 drained and empty queue, got %d / %d", len(drained), q.Len())
	}
}

func TestNewMutatorEntryNormalizesDependencies(t *testing.T) {
	e := entry("x", " b ", "a", "b", "")
	if !reflect.DeepEqual(e.Dependencies, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", e.Dependencies)
	}
	if !e.Requires("a") || e.Requires("x") {
		t.Fatalf("unexpected requires set")
	}
}
