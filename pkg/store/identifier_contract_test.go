package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-sheet/pkg/store"
)

type identifierFixture struct {
	Description string           `json:"description"`
	Cases       []identifierCase `json:"cases"`
}

type identifierCase struct {
	Name string `json:"name"`
	Ref  struct {
		TenantID    string `json:"tenant_id"`
		CharacterID string `json:"character_id"`
	} `json:"ref"`
	Expect struct {
		Value string `json:"value"`
		Error string `json:"error"`
	} `json:"expect"`
}

func TestRefIdentifierFromFixture(t *testing.T) {
	payload, err := os.ReadFile(filepath.Join("testdata", "identifiers.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fx identifierFixture
	if err := json.Unmarshal(payload, &fx); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			ref := store.Ref{TenantID: tc.Ref.TenantID, CharacterID: tc.Ref.CharacterID}
			got, err := ref.Identifier()
			if tc.Expect.Error != "" {
				if err == nil || !strings.Contains(err.Error(), tc.Expect.Error) {
					t.Fatalf("expected error containing %q, got %v", tc.Expect.Error, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("identifier: %v", err)
			}
			if got != tc.Expect.Value {
				t.Fatalf("expected %q, got %q", tc.Expect.Value, got)
			}
		})
	}
}
