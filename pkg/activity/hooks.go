package activity

import (
	"context"
	"errors"
)

// Hook receives normalized character events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks is a list of hooks notified in order.
type Hooks []Hook

// Enabled reports whether the list holds at least one hook.
func (h Hooks) Enabled() bool {
	for _, hook := range h {
		if hook != nil {
			return true
		}
	}
	return false
}

// Notify normalizes event and hands it to every hook. Events that are not
// routable are dropped. A failing hook does not stop the others; their
// errors are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if !h.Enabled() || !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = event.Normalize()

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
