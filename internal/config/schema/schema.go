// Package schema validates configuration files against the embedded
// pixstorm JSON Schema.
//
// Only the subset of JSON Schema the configuration needs is supported:
// type, properties, additionalProperties, items, enum, minimum, maximum,
// minItems and the "color" format.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed pixstorm.schema.json
var schemaFS embed.FS

// Schema is a JSON Schema node.
type Schema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Type is one type name or a list of them.
	Type SchemaType `json:"type,omitempty"`

	Properties map[string]*Schema `json:"properties,omitempty"`

	// AdditionalProperties false rejects keys not listed in Properties.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`

	Items *Schema `json:"items,omitempty"`

	Enum []any `json:"enum,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	MinItems *int `json:"minItems,omitempty"`

	// Format "color" accepts #rgb, #rrggbb, #rrggbbaa or an empty string.
	Format string `json:"format,omitempty"`

	Default any `json:"default,omitempty"`
}

// SchemaType is a single type name or a list of them.
type SchemaType struct {
	Types []string
}

// UnmarshalJSON accepts "string" and ["string", "null"] forms.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		t.Types = []string{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("type must be a string or an array of strings: %w", err)
	}
	t.Types = multi
	return nil
}

// MarshalJSON writes a single type as a plain string.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t.Types) == 1 {
		return json.Marshal(t.Types[0])
	}
	return json.Marshal(t.Types)
}

// Is reports whether typ is one of the allowed types.
func (t SchemaType) Is(typ string) bool {
	for _, have := range t.Types {
		if have == typ {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no type is set.
func (t SchemaType) IsEmpty() bool {
	return len(t.Types) == 0
}

func (t SchemaType) String() string {
	return strings.Join(t.Types, " or ")
}

var (
	embedded     *Schema
	embeddedOnce sync.Once
	embeddedErr  error
)

// LoadEmbedded returns the built-in configuration schema.
func LoadEmbedded() (*Schema, error) {
	embeddedOnce.Do(func() {
		data, err := schemaFS.ReadFile("pixstorm.schema.json")
		if err != nil {
			embeddedErr = fmt.Errorf("read embedded schema: %w", err)
			return
		}
		embedded, embeddedErr = Parse(data)
	})
	return embedded, embeddedErr
}

// Parse parses a schema document.
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s, nil
}

// GetProperty returns the schema at a dot-separated path such as
// "render.fps", or nil.
func (s *Schema) GetProperty(path string) *Schema {
	if s == nil || path == "" {
		return s
	}
	current := s
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		next, ok := current.Properties[part]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// AllowsAdditionalProperties reports whether unlisted keys are accepted.
func (s *Schema) AllowsAdditionalProperties() bool {
	return s.AdditionalProperties == nil || *s.AdditionalProperties
}
