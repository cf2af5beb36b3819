// Package content loads characters, default rule blocks and shared objects
// from YAML documents.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	sheet "github.com/goliatone/go-sheet"
	"github.com/goliatone/go-sheet/pkg/objects"
)

// Document is one content file. A file may hold several YAML documents;
// they are merged in order.
type Document struct {
	Defaults   []sheet.DefaultBlock `yaml:"defaults,omitempty"`
	Objects    []sheet.Object       `yaml:"objects,omitempty" validate:"dive"`
	Characters []sheet.Persistent   `yaml:"characters,omitempty"`
}

var contentValidator = validator.New(validator.WithRequiredStructEnabled())

// Decode reads every YAML document from r. Unknown keys are rejected.
func Decode(r io.Reader) (Document, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var out Document
	for {
		var doc Document
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Document{}, fmt.Errorf("content: decode: %w", err)
		}
		out = Merge(out, doc)
	}
	if err := out.Validate(); err != nil {
		return Document{}, err
	}
	return out, nil
}

// LoadFile decodes the file at path.
func LoadFile(path string) (Document, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("content: read %s: %w", path, err)
	}
	doc, err := Decode(bytes.NewReader(payload))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadDir decodes every .yaml and .yml file directly under dir in name
// order and merges them.
func LoadDir(dir string) (Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Document{}, fmt.Errorf("content: read dir %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out Document
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return Document{}, err
		}
		out = Merge(out, doc)
	}
	if err := out.Validate(); err != nil {
		return Document{}, fmt.Errorf("%s: %w", dir, err)
	}
	return out, nil
}

// Load reads path as a file or, when it is a directory, with LoadDir.
func Load(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("content: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// Merge appends the sections of docs in order.
func Merge(docs ...Document) Document {
	var out Document
	for _, doc := range docs {
		out.Defaults = append(out.Defaults, doc.Defaults...)
		out.Objects = append(out.Objects, doc.Objects...)
		out.Characters = append(out.Characters, doc.Characters...)
	}
	return out
}

// Validate checks every character and object and rejects duplicate ids.
func (d Document) Validate() error {
	if err := contentValidator.Struct(d); err != nil {
		return fmt.Errorf("content: invalid objects: %w", err)
	}
	objectIDs := map[string]struct{}{}
	for _, object := range d.Objects {
		key := strings.ToLower(strings.TrimSpace(object.ID))
		if _, dup := objectIDs[key]; dup {
			return fmt.Errorf("content: duplicate object id %q", object.ID)
		}
		objectIDs[key] = struct{}{}
	}
	characterIDs := map[string]struct{}{}
	for _, p := range d.Characters {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("content: %w", err)
		}
		if _, dup := characterIDs[p.ID]; dup {
			return fmt.Errorf("content: duplicate character id %q", p.ID)
		}
		characterIDs[p.ID] = struct{}{}
	}
	return nil
}

// Character returns the character with id.
func (d Document) Character(id string) (sheet.Persistent, bool) {
	for _, p := range d.Characters {
		if p.ID == id {
			return p, true
		}
	}
	return sheet.Persistent{}, false
}

// CharacterIDs lists character ids in document order.
func (d Document) CharacterIDs() []string {
	out := make([]string, 0, len(d.Characters))
	for _, p := range d.Characters {
		out = append(out, p.ID)
	}
	return out
}

// ObjectCache returns a cache holding every object of the document.
func (d Document) ObjectCache() *sheet.MemoryObjectCache {
	return sheet.NewMemoryObjectCache(d.Objects...)
}

// Fetcher serves the document objects to an objects.Prefetcher.
func (d Document) Fetcher() objects.Fetcher {
	index := make(map[string]sheet.Object, len(d.Objects))
	for _, object := range d.Objects {
		index[strings.ToLower(strings.TrimSpace(object.ID))] = object
	}
	return objects.FetcherFunc(func(ctx context.Context, id string) (sheet.Object, error) {
		if err := ctx.Err(); err != nil {
			return sheet.Object{}, err
		}
		object, ok := index[strings.ToLower(strings.TrimSpace(id))]
		if !ok {
			return sheet.Object{}, fmt.Errorf("%w: %q", objects.ErrNotFound, id)
		}
		return object, nil
	})
}

// Options returns compile options applying the default blocks and
// resolving references against the document objects.
func (d Document) Options() []sheet.Option {
	groups := make([]sheet.Group, 0, len(d.Defaults))
	for _, block := range d.Defaults {
		groups = append(groups, block)
	}
	opts := []sheet.Option{sheet.WithObjectCache(d.ObjectCache())}
	if len(groups) > 0 {
		opts = append(opts, sheet.WithDefaults(groups...))
	}
	return opts
}
