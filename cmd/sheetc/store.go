package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/activity"
	"github.com/goliatone/go-sheet/pkg/store"
)

type storeFlags struct {
	dsn     string
	dialect string
	tenant  string
}

func newStoreCmd(flags *rootFlags) *cobra.Command {
	sf := &storeFlags{}
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save and load characters in a SQL store",
	}
	cmd.PersistentFlags().StringVar(&sf.dsn, "dsn", "", "database DSN (default $SHEET_STORE_DSN)")
	cmd.PersistentFlags().StringVar(&sf.dialect, "dialect", "", "sqlite or postgres (default $SHEET_STORE_DIALECT)")
	cmd.PersistentFlags().StringVar(&sf.tenant, "tenant", "", "tenant id the characters belong to")

	importCmd := &cobra.Command{
		Use:   "import [character-id...]",
		Short: "Validate, compile and save characters from the content",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			resolver, closeStore, err := sf.open(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer closeStore()

			ids := args
			if len(ids) == 0 {
				ids = e.doc.CharacterIDs()
			}
			for _, id := range ids {
				p, ok := e.doc.Character(id)
				if !ok {
					return fmt.Errorf("unknown character %q", id)
				}
				ref := store.Ref{TenantID: sf.tenant, CharacterID: id}
				_, meta, err := resolver.Mutate(cmd.Context(), ref, store.Meta{}, func(current *sheet.Persistent) error {
					*current = p
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, meta.SnapshotID, meta.ETag)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <character-id>",
		Short: "Load a stored character, compile it and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			resolver, closeStore, err := sf.open(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer closeStore()

			c, meta, err := resolver.Load(cmd.Context(), store.Ref{TenantID: sf.tenant, CharacterID: args[0]})
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(struct {
				Meta      store.Meta `json:"meta"`
				Character summary    `json:"character"`
			}{Meta: meta, Character: summarize(c)})
		},
	}

	cmd.AddCommand(importCmd, showCmd)
	return cmd
}

func (sf *storeFlags) open(ctx context.Context, e env) (store.Resolver, func(), error) {
	dsn := sf.dsn
	if dsn == "" {
		dsn = e.cfg.StoreDSN
	}
	dialect := sf.dialect
	if dialect == "" {
		dialect = e.cfg.StoreDialect
	}
	if dsn == "" {
		return store.Resolver{}, nil, fmt.Errorf("--dsn or SHEET_STORE_DSN is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := store.OpenSQLStore[sheet.Persistent](ctx, store.Dialect(dialect), dsn)
	if err != nil {
		return store.Resolver{}, nil, err
	}
	logSaved := activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		e.logger.InfoContext(ctx, "character saved",
			slog.String("character_id", event.CharacterID),
			slog.String("channel", event.Channel),
			slog.Any("snapshot_id", event.Metadata["snapshot_id"]))
		return nil
	})
	emitter := activity.NewEmitter(activity.Hooks{logSaved}, activity.Config{Enabled: e.cfg.ActivityEnabled, Channel: e.cfg.ActivityChannel})
	resolver := store.Resolver{Store: s, Options: e.options, Emitter: emitter}
	return resolver, func() { _ = s.Close() }, nil
}
