package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sheet "github.com/goliatone/go-sheet"
)

func newExplainCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "explain <character-id> <attribute>",
		Short: "Show every contribution to one derived value",
		Long: `Attributes: ability_score.<ability>, saving_throw.<ability>,
skill.<skill>, armor_class, max_hit_points, proficiency_bonus,
speed.<kind> and sense.<kind>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			p, ok := e.doc.Character(args[0])
			if !ok {
				return fmt.Errorf("unknown character %q", args[0])
			}
			c, err := sheet.Compile(cmd.Context(), p, e.options...)
			if err != nil {
				return fmt.Errorf("compile %s: %w", args[0], err)
			}
			explanation, err := c.Explain(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				payload, err := explanation.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(payload))
				return err
			}
			fmt.Fprintf(out, "%s = %d\n", explanation.Attribute, explanation.Value)
			for _, contribution := range explanation.Contributions {
				marker := " "
				if contribution.Applied {
					marker = "*"
				}
				fmt.Fprintf(out, "  %s %-8s %+4d  %s\n", marker, contribution.Kind, contribution.Amount, contribution.Source.Display())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the explanation as JSON")
	return cmd
}
