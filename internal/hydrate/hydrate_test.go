package hydrate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type speedArgs struct {
	Kind string `json:"kind,omitempty"`
	Feet int    `json:"feet,omitempty"`
}

type fixtureCase struct {
	Name      string         `json:"name"`
	NodeType  string         `json:"node_type"`
	Strict    bool           `json:"strict"`
	PreHooks  []string       `json:"pre_hooks"`
	PostHooks []string       `json:"post_hooks"`
	Input     map[string]any `json:"input"`
	Expect    speedArgs      `json:"expect"`
	ExpectErr string         `json:"expect_err"`
}

type fixtureFile struct {
	Cases []fixtureCase `json:"cases"`
}

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_nodes.json")

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[speedArgs](buildOptions(tc)...)

			result, err := decoder.Decode(Context{NodeType: tc.NodeType, Source: "Race/Elf"}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded args mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"Kind": "walking", "Feet": 30}
	decoder := NewDecoder[speedArgs](WithPreHook[speedArgs](NormalizeKeys))

	if _, err := decoder.Decode(Context{NodeType: "speed"}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := input["Kind"]; !ok {
		t.Fatalf("expected caller payload to keep original keys, got %#v", input)
	}
}

func TestNormalizeKeysRecurses(t *testing.T) {
	out, err := NormalizeKeys(Context{}, map[string]any{
		"Then-Nodes": []any{map[string]any{"Max Total": 17}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	nodes, ok := out["then_nodes"].([]any)
	if !ok || len(nodes) != 1 {
		t.Fatalf("expected normalized list, got %#v", out)
	}
	if _, ok := nodes[0].(map[string]any)["max_total"]; !ok {
		t.Fatalf("expected nested key normalized, got %#v", nodes[0])
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[speedArgs] {
	var options []DecoderOption[speedArgs]
	if tc.Strict {
		options = append(options, WithStrictFields[speedArgs]())
	}
	for _, name := range tc.PreHooks {
		if name == "normalize" {
			options = append(options, WithPreHook[speedArgs](NormalizeKeys))
		}
	}
	for _, name := range tc.PostHooks {
		switch name {
		case "default_kind":
			options = append(options, WithPostHook[speedArgs](func(_ Context, args *speedArgs) error {
				if args.Kind == "" {
					args.Kind = "walking"
				}
				return nil
			}))
		case "positive":
			options = append(options, WithPostHook[speedArgs](func(_ Context, args *speedArgs) error {
				if args.Feet < 0 {
					return errors.New("feet must not be negative")
				}
				return nil
			}))
		}
	}
	return options
}

func loadFixture(t *testing.T, name string) fixtureFile {
	t.Helper()
	payload, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fx fixtureFile
	if err := json.Unmarshal(payload, &fx); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return fx
}
