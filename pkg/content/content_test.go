package content_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/content"
	"github.com/goliatone/go-sheet/pkg/objects"
)

func loadCampaign(t *testing.T) content.Document {
	t.Helper()
	doc, err := content.Load(filepath.Join("testdata", "campaign"))
	if err != nil {
		t.Fatalf("load campaign: %v", err)
	}
	return doc
}

func TestLoadDirMergesFilesAndDocuments(t *testing.T) {
	doc := loadCampaign(t)

	if got := doc.CharacterIDs(); !reflect.DeepEqual(got, []string{"vex", "tamsin"}) {
		t.Fatalf("unexpected characters %v", got)
	}
	if len(doc.Defaults) != 1 || doc.Defaults[0].Name != "Rules" {
		t.Fatalf("unexpected defaults %+v", doc.Defaults)
	}
	if len(doc.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(doc.Objects))
	}
}

func TestDocumentOptionsCompileCharacter(t *testing.T) {
	doc := loadCampaign(t)
	p, ok := doc.Character("vex")
	if !ok {
		t.Fatalf("expected vex")
	}

	c, err := sheet.Compile(context.Background(), p, doc.Options()...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(c.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics %+v", c.Diagnostics())
	}
	if got := c.ArmorClass(); got != 14 {
		t.Fatalf("expected armor class 14, got %d", got)
	}
	if got := c.MaxHitPoints(); got != 12 {
		t.Fatalf("expected max hit points 12, got %d", got)
	}
	if speed, ok := c.Speed("walking"); !ok || speed != 30 {
		t.Fatalf("expected walking speed 30 from defaults, got %d (%v)", speed, ok)
	}
}

func TestDocumentSkillFromBundle(t *testing.T) {
	doc := loadCampaign(t)
	p, _ := doc.Character("tamsin")

	c, err := sheet.Compile(context.Background(), p, doc.Options()...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := c.AbilityModifier(sheet.Wisdom) + c.ProficiencyBonus()
	if got := c.SkillModifier(sheet.Insight); got != want {
		t.Fatalf("expected insight %d, got %d", want, got)
	}
}

func TestDocumentFetcherFeedsPrefetcher(t *testing.T) {
	doc := loadCampaign(t)
	p, _ := doc.Character("vex")
	prefetcher := objects.NewPrefetcher(doc.Fetcher())

	c, err := sheet.Compile(context.Background(), p, prefetcher.Option())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.ArmorClass() != 13 {
		t.Fatalf("expected armor class 13 before fetching, got %d", c.ArmorClass())
	}
	if _, err := prefetcher.Resolve(context.Background(), c); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.ArmorClass() != 14 {
		t.Fatalf("expected armor class 14 after fetching, got %d", c.ArmorClass())
	}

	_, err = doc.Fetcher().Fetch(context.Background(), "ghost")
	if !errors.Is(err, objects.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecodeRejectsInvalidContent(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{file: "unknown_field.yaml", want: "nickname"},
		{file: "duplicate_objects.yaml", want: "duplicate object id"},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			_, err := content.LoadFile(filepath.Join("testdata", tc.file))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDecodeRejectsDuplicateCharacters(t *testing.T) {
	payload := `
characters:
  - id: vex
---
characters:
  - id: vex
`
	_, err := content.Decode(strings.NewReader(payload))
	if err == nil || !strings.Contains(err.Error(), "duplicate character id") {
		t.Fatalf("expected duplicate character error, got %v", err)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	doc, err := content.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Characters) != 0 || len(doc.Options()) != 1 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}
