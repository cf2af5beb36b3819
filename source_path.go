package sheet

import (
	"encoding/json"
	"strings"
)

const pathSeparator = "/"

// SourcePath identifies the object that contributed a mutator or ledger
// entry. Segments added with JoinHidden take part in the data path (used to
// key selections and break ordering ties) but are left out of Display.
type SourcePath struct {
	segments []pathSegment
}

type pathSegment struct {
	name   string
	hidden bool
}

// NewSourcePath builds a path from visible segments, skipping empty ones.
func NewSourcePath(segments ...string) SourcePath {
	var path SourcePath
	for _, segment := range segments {
		path = path.Join(segment)
	}
	return path
}

// ParseSourcePath splits a slash separated data path into visible segments.
func ParseSourcePath(value string) SourcePath {
	return NewSourcePath(strings.Split(value, pathSeparator)...)
}

// Join returns a copy of p with name appended as a visible segment.
func (p SourcePath) Join(name string) SourcePath {
	return p.join(name, false)
}

// JoinHidden returns a copy of p with name appended as a data-only segment.
func (p SourcePath) JoinHidden(name string) SourcePath {
	return p.join(name, true)
}

func (p SourcePath) join(name string, hidden bool) SourcePath {
	name = strings.Trim(strings.TrimSpace(name), pathSeparator)
	if name == "" {
		return p
	}
	out := SourcePath{segments: make([]pathSegment, 0, len(p.segments)+1)}
	out.segments = append(out.segments, p.segments...)
	for _, part := range strings.Split(name, pathSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out.segments = append(out.segments, pathSegment{name: part, hidden: hidden})
		}
	}
	return out
}

// Segments returns every segment name, hidden ones included.
func (p SourcePath) Segments() []string {
	out := make([]string, 0, len(p.segments))
	for _, segment := range p.segments {
		out = append(out, segment.name)
	}
	return out
}

// Data renders the full slash separated path used as a selection key.
func (p SourcePath) Data() string {
	return strings.Join(p.Segments(), pathSeparator)
}

// Display renders the human readable path, omitting hidden segments.
func (p SourcePath) Display() string {
	parts := make([]string, 0, len(p.segments))
	for _, segment := range p.segments {
		if !segment.hidden {
			parts = append(parts, segment.name)
		}
	}
	return strings.Join(parts, pathSeparator)
}

// Last returns the final visible segment, or "" for an empty path.
func (p SourcePath) Last() string {
	for i := len(p.segments) - 1; i >= 0; i-- {
		if !p.segments[i].hidden {
			return p.segments[i].name
		}
	}
	return ""
}

// IsZero reports whether the path has no segments.
func (p SourcePath) IsZero() bool {
	return len(p.segments) == 0
}

// HasPrefix reports whether every segment of prefix leads p.
func (p SourcePath) HasPrefix(prefix SourcePath) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, segment := range prefix.segments {
		if p.segments[i].name != segment.name {
			return false
		}
	}
	return true
}

// Equal compares data paths.
func (p SourcePath) Equal(other SourcePath) bool {
	return p.Data() == other.Data()
}

func (p SourcePath) String() string {
	return p.Display()
}

// MarshalJSON encodes the path as its display form alongside the data form.
func (p SourcePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(sourcePathJSON{Data: p.Data(), Display: p.Display()})
}

// UnmarshalJSON restores a path encoded by MarshalJSON. Segments missing from
// the display form are restored as hidden.
func (p *SourcePath) UnmarshalJSON(payload []byte) error {
	var raw sourcePathJSON
	if err := json.Unmarshal(payload, &raw); err != nil {
		var plain string
		if plainErr := json.Unmarshal(payload, &plain); plainErr != nil {
			return err
		}
		*p = ParseSourcePath(plain)
		return nil
	}
	visible := strings.Split(raw.Display, pathSeparator)
	next := 0
	var out SourcePath
	for _, name := range strings.Split(raw.Data, pathSeparator) {
		if name == "" {
			continue
		}
		if next < len(visible) && visible[next] == name {
			out = out.Join(name)
			next++
			continue
		}
		out = out.JoinHidden(name)
	}
	*p = out
	return nil
}

type sourcePathJSON struct {
	Data    string `json:"data"`
	Display string `json:"display"`
}
