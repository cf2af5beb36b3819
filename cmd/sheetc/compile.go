package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	sheet "github.com/goliatone/go-sheet"
)

func newCompileCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [character-id...]",
		Short: "Compile characters and print their derived values as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				ids = e.doc.CharacterIDs()
			}

			summaries := make([]summary, 0, len(ids))
			for _, id := range ids {
				p, ok := e.doc.Character(id)
				if !ok {
					return fmt.Errorf("unknown character %q", id)
				}
				c, err := sheet.Compile(cmd.Context(), p, e.options...)
				if err != nil {
					return fmt.Errorf("compile %s: %w", id, err)
				}
				summaries = append(summaries, summarize(c))
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(summaries)
		},
	}
}

type summary struct {
	ID                string                `json:"id"`
	Name              string                `json:"name,omitempty"`
	Level             int                   `json:"level"`
	ProficiencyBonus  int                   `json:"proficiency_bonus"`
	Abilities         map[string]abilityRow `json:"abilities"`
	Skills            map[string]int        `json:"skills,omitempty"`
	ArmorClass        int                   `json:"armor_class"`
	MaxHitPoints      int                   `json:"max_hit_points"`
	PassivePerception int                   `json:"passive_perception"`
	Speeds            map[string]int        `json:"speeds,omitempty"`
	Flags             []string              `json:"flags,omitempty"`
	MissingSelections []string              `json:"missing_selections,omitempty"`
	Diagnostics       []sheet.Diagnostic    `json:"diagnostics,omitempty"`
	Fingerprint       string                `json:"fingerprint"`
}

type abilityRow struct {
	Score    uint `json:"score"`
	Modifier int  `json:"modifier"`
	Save     int  `json:"save"`
}

func summarize(c *sheet.Character) summary {
	p := c.Persistent()
	out := summary{
		ID:                c.ID(),
		Name:              p.Name,
		Level:             c.Level(),
		ProficiencyBonus:  c.ProficiencyBonus(),
		Abilities:         map[string]abilityRow{},
		ArmorClass:        c.ArmorClass(),
		MaxHitPoints:      c.MaxHitPoints(),
		PassivePerception: c.PassivePerception(),
		Diagnostics:       c.Diagnostics(),
	}
	for _, ability := range sheet.Abilities {
		out.Abilities[string(ability)] = abilityRow{
			Score:    c.AbilityScore(ability),
			Modifier: c.AbilityModifier(ability),
			Save:     c.SavingThrowModifier(ability),
		}
	}
	derived := c.Derived()
	for skill := range derived.Skills {
		if out.Skills == nil {
			out.Skills = map[string]int{}
		}
		out.Skills[string(skill)] = c.SkillModifier(skill)
	}
	for kind := range derived.Speeds {
		if speed, ok := c.Speed(kind); ok {
			if out.Speeds == nil {
				out.Speeds = map[string]int{}
			}
			out.Speeds[kind] = speed
		}
	}
	for flag := range derived.Flags {
		out.Flags = append(out.Flags, flag)
	}
	sort.Strings(out.Flags)
	for _, path := range c.MissingSelections() {
		out.MissingSelections = append(out.MissingSelections, path.Data())
	}
	if fingerprint, err := derived.Fingerprint(); err == nil {
		out.Fingerprint = fingerprint
	}
	return out
}
