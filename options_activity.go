package sheet

import "github.com/goliatone/go-sheet/pkg/activity"

// WithActivityHooks attaches hooks notified after each compile. Nil entries
// are dropped. Emission is enabled unless WithActivityConfig says otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig controls whether and on which channel events are
// emitted.
func WithActivityConfig(activityCfg activity.Config) Option {
	return func(cfg *config) {
		cfg.activity = &activityCfg
	}
}

func (cfg config) activityEmitter() *activity.Emitter {
	settings := activity.Config{Enabled: true, Channel: activity.ChannelCharacters}
	if cfg.activity != nil {
		settings = *cfg.activity
	}
	return activity.NewEmitter(cfg.activityHooks, settings)
}

// ActivityHooks returns a copy of the hooks configured on the character.
func (c *Character) ActivityHooks() activity.Hooks {
	if c == nil {
		return nil
	}
	return cloneActivityHooks(c.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
