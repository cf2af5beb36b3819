package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/content"
)

type rootFlags struct {
	content string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "sheetc",
		Short: "Compile character sheets from YAML content",
		Long: `sheetc loads characters, default rule blocks and shared objects from
YAML content and prints what the engine derives from them.

Evaluator and ability score settings come from SHEET_* environment
variables.

Examples:
  sheetc compile -c content/           # every character as JSON
  sheetc compile -c party.yaml vex     # one character
  sheetc explain -c party.yaml vex armor_class
  sheetc store import -c party.yaml --dsn sheet.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.content, "content", "c", "", "content file or directory")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log compile events to stderr")

	root.AddCommand(newCompileCmd(flags), newExplainCmd(flags), newStoreCmd(flags))
	return root
}

// env is what every command needs before compiling.
type env struct {
	doc     content.Document
	cfg     sheet.Config
	options []sheet.Option
	logger  *slog.Logger
}

func (f *rootFlags) load(stderr io.Writer) (env, error) {
	if f.content == "" {
		return env{}, fmt.Errorf("--content is required")
	}
	doc, err := content.Load(f.content)
	if err != nil {
		return env{}, err
	}
	cfg, err := sheet.LoadConfig()
	if err != nil {
		return env{}, err
	}
	options, err := cfg.Options()
	if err != nil {
		return env{}, err
	}
	options = append(options, doc.Options()...)

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	events := sheet.NewSlogLogger(logger)
	options = append(options, sheet.WithCompileLogger(events), sheet.WithEvaluatorLogger(events))

	return env{doc: doc, cfg: cfg, options: options, logger: logger}, nil
}
