package sheet

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/goliatone/go-sheet/pkg/activity"
)

// Config holds process level settings read from the environment.
type Config struct {
	Evaluator       string `env:"SHEET_EVALUATOR"         envDefault:"expr"       validate:"oneof=expr cel js"`
	DefaultMaxScore uint   `env:"SHEET_DEFAULT_MAX_SCORE" envDefault:"20"         validate:"gte=1,lte=30"`
	ProgramCache    bool   `env:"SHEET_PROGRAM_CACHE"     envDefault:"true"`
	ActivityEnabled bool   `env:"SHEET_ACTIVITY_ENABLED"  envDefault:"true"`
	ActivityChannel string `env:"SHEET_ACTIVITY_CHANNEL"  envDefault:"characters"`
	StoreDSN        string `env:"SHEET_STORE_DSN"`
	StoreDialect    string `env:"SHEET_STORE_DIALECT"     envDefault:"sqlite"     validate:"oneof=sqlite postgres"`
}

// LoadConfig parses Config from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("sheet: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the config.
func (c Config) Validate() error {
	if err := nodeValidator.Struct(c); err != nil {
		return fmt.Errorf("sheet: invalid config: %w", err)
	}
	return nil
}

// Options turns the config into character options. The returned options
// share one program cache, so pass them to every character of the process.
func (c Config) Options() ([]Option, error) {
	var cache ProgramCache
	if c.ProgramCache {
		cache = NewMemoryProgramCache()
	}
	evaluator, err := NewEvaluator(c.Evaluator, EngineCache(cache), EngineFunctions(DefaultFunctions()))
	if err != nil {
		return nil, err
	}
	return []Option{
		WithEvaluator(evaluator),
		WithMaximumScore(c.DefaultMaxScore),
		WithActivityConfig(activity.Config{Enabled: c.ActivityEnabled, Channel: c.ActivityChannel}),
	}, nil
}
