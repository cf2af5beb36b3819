package sheet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-sheet/layering"
	"github.com/goliatone/go-sheet/pkg/activity"
)

// CompileState tracks where a character is in its compile cycle.
type CompileState int

const (
	StateUncompiled CompileState = iota
	StateCompiling
	StateCompiled
)

func (s CompileState) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateCompiling:
		return "compiling"
	case StateCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// sourceDefaults roots the source paths of configured default groups.
const sourceDefaults = "Defaults"

// Character pairs the persistent record with the snapshot derived from it.
// Recompile rebuilds the snapshot from scratch. The snapshot pointer and the
// compile state are published atomically, and a compiled snapshot is frozen.
type Character struct {
	mu  sync.Mutex
	cfg config

	persistent Persistent
	working    Persistent
	derived    atomic.Pointer[Derived]
	queue      MutatorQueue
	state      atomic.Int32

	// err is the first fatal registration error of the running compile.
	err      error
	flushing bool
	dropped  int
	applied  []MutatorEntry
}

// New builds an uncompiled character.
func New(p Persistent, opts ...Option) *Character {
	cfg := applyOptions(opts)
	c := &Character{
		cfg:        cfg,
		persistent: p,
		working:    layering.Clone(p),
	}
	c.derived.Store(NewDerived(cfg.maximumScore))
	return c
}

// Compile builds a character and compiles it once.
func Compile(ctx context.Context, p Persistent, opts ...Option) (*Character, error) {
	c := New(p, opts...)
	if err := c.Recompile(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Persistent returns a deep copy of the persistent record.
func (c *Character) Persistent() Persistent {
	return layering.Clone(c.persistent)
}

// SetPersistent replaces the persistent record and marks the character
// uncompiled. The derived snapshot is kept until the next Recompile.
func (c *Character) SetPersistent(p Persistent) error {
	if !c.mu.TryLock() {
		return ErrCompileInProgress
	}
	defer c.mu.Unlock()
	c.persistent = p
	c.setState(StateUncompiled)
	return nil
}

// Derived returns the snapshot of the last compile. Mutators receive the
// snapshot under construction; other goroutines should only read it once
// State reports StateCompiled.
func (c *Character) Derived() *Derived {
	return c.derived.Load()
}

// State reports the compile state. It is safe to call while a compile runs.
func (c *Character) State() CompileState {
	return CompileState(c.state.Load())
}

func (c *Character) setState(state CompileState) {
	c.state.Store(int32(state))
}

// Selections returns the user choices of the record being compiled.
func (c *Character) Selections() Selections {
	if c.working.Selections == nil {
		return Selections{}
	}
	return c.working.Selections
}

// Level is the total character level.
func (c *Character) Level() int {
	return c.working.Level()
}

// ID returns the persistent id.
func (c *Character) ID() string {
	return c.persistent.ID
}

// AppliedMutators lists the entries of the last compile in the order they
// ran.
func (c *Character) AppliedMutators() []MutatorEntry {
	return append([]MutatorEntry(nil), c.applied...)
}

// Register queues m with its source. Registration only happens while the
// character tree is walked; a mutator registered while the queue is being
// applied is dropped and counted.
func (c *Character) Register(m Mutator, source SourcePath) {
	if m == nil {
		return
	}
	if c.flushing {
		c.dropped++
		return
	}
	if c.err != nil {
		return
	}
	if err := c.queue.Insert(NewMutatorEntry(m, source)); err != nil {
		c.err = err
	}
}

// ApplyFrom lets group register its mutators under parent joined with the
// group path.
func (c *Character) ApplyFrom(g Group, parent SourcePath) {
	if g == nil {
		return
	}
	source := parent
	if path := g.Path(); path != "" {
		source = parent.Join(path)
	}
	g.ApplyMutators(c, source)
}

// ApplyNodes parses nodes through the registry and registers the result.
// A node that parses into a Group, such as a feature, is applied as one.
// Nodes that cannot be parsed are recorded as diagnostics and skipped.
func (c *Character) ApplyNodes(nodes []Node, source SourcePath) {
	for _, node := range nodes {
		mutator, err := c.cfg.registry.Parse(node, source)
		if err != nil {
			kind := DiagnosticInvalidNode
			if errors.Is(err, ErrMissingFactory) {
				kind = DiagnosticMissingFactory
			}
			c.Derived().AddDiagnostic(newDiagnostic(kind, source, node.Type, err))
			continue
		}
		if group, ok := mutator.(Group); ok {
			c.ApplyFrom(group, source)
			continue
		}
		c.Register(mutator, source)
	}
}

func (c *Character) lookupObject(id string) (Object, bool) {
	if c.cfg.objects == nil {
		return Object{}, false
	}
	return c.cfg.objects.Object(id)
}

// Recompile discards the derived snapshot and rebuilds it: default groups,
// then the character tree, then every queued mutator in dependency order,
// then the ability score finalizer. A cyclic dependency aborts the compile
// and leaves the character uncompiled. Calls made while a compile runs
// return ErrCompileInProgress.
func (c *Character) Recompile(ctx context.Context) error {
	if !c.mu.TryLock() {
		return ErrCompileInProgress
	}
	defer c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := c.cfg.tracer.Start(ctx, "sheet.recompile",
		trace.WithAttributes(attribute.String("sheet.character_id", c.persistent.ID)))
	defer span.End()

	start := time.Now()
	err := c.compile(ctx)
	duration := time.Since(start)

	event := CompileLogEvent{
		CharacterID:       c.persistent.ID,
		State:             c.State(),
		Duration:          duration,
		Mutators:          len(c.applied),
		Diagnostics:       len(c.Derived().Diagnostics),
		MissingSelections: len(c.Derived().MissingSelections),
		Err:               err,
	}
	c.cfg.compileLogger.LogCompile(event)

	span.SetAttributes(
		attribute.Int("sheet.mutators", event.Mutators),
		attribute.Int("sheet.diagnostics", event.Diagnostics),
		attribute.Int("sheet.missing_selections", event.MissingSelections),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if emitErr := c.emitCompiled(ctx, event); emitErr != nil {
		span.RecordError(emitErr)
	}
	return nil
}

func (c *Character) compile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.err = nil
	c.flushing = false
	c.dropped = 0
	c.applied = nil
	c.queue.Reset()
	derived := NewDerived(c.cfg.maximumScore)
	c.derived.Store(derived)
	c.setState(StateCompiling)

	c.working = layering.Clone(c.persistent)
	if c.cfg.preset != nil {
		c.working = layering.Overlay(c.working, layering.Clone(*c.cfg.preset))
	}

	root := NewSourcePath()
	defaults := root.Join(sourceDefaults)
	for _, group := range c.cfg.defaults {
		c.ApplyFrom(group, defaults)
	}
	c.ApplyFrom(c.working, root)

	if c.err != nil {
		c.queue.Reset()
		derived.Freeze()
		c.setState(StateUncompiled)
		return c.err
	}

	c.flushing = true
	for _, entry := range c.queue.Drain() {
		entry.Mutator.Apply(c, entry.Source)
		c.applied = append(c.applied, entry)
	}
	c.flushing = false
	if c.dropped > 0 {
		derived.AddDiagnostic(Diagnostic{
			Kind:    DiagnosticInvalidNode,
			Source:  root,
			Message: fmt.Sprintf("%d mutator(s) registered while applying were ignored", c.dropped),
		})
	}

	derived.FinalizeAbilities()
	derived.Freeze()
	c.setState(StateCompiled)
	return nil
}

func (c *Character) emitCompiled(ctx context.Context, event CompileLogEvent) error {
	emitter := c.cfg.activityEmitter()
	if !emitter.Enabled() {
		return nil
	}
	input := activity.CharacterEventInput{
		CharacterID: c.persistent.ID,
		Name:        c.persistent.Name,
		Level:       c.working.Level(),
		Mutators:    event.Mutators,
		Diagnostics: event.Diagnostics,
		Duration:    event.Duration,
	}
	if fingerprint, err := c.Derived().Fingerprint(); err == nil {
		input.Fingerprint = fingerprint
	}
	var errs []error
	if err := emitter.Emit(ctx, activity.BuildCharacterCompiledEvent(input)); err != nil {
		errs = append(errs, err)
	}
	if len(c.Derived().MissingSelections) > 0 {
		for _, path := range c.Derived().MissingSelections {
			input.MissingSelections = append(input.MissingSelections, path.Data())
		}
		if err := emitter.Emit(ctx, activity.BuildSelectionMissingEvent(input)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
