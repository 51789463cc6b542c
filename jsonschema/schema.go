// Package jsonschema holds the JSON Schema document model that wire schemas
// are exported to.
package jsonschema

// Schema is a minimal JSON Schema representation used for export.
// Keep this struct small and extend it as projections need more keywords.
type Schema struct {
	// Core
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Const       any    `json:"const,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// Draft is the dialect URI written by exporters at the document root.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Null is the schema accepting only null.
func Null() *Schema { return &Schema{Type: "null"} }

// OrNull widens s to also accept null.
func OrNull(s *Schema) *Schema {
	return &Schema{OneOf: []*Schema{s, Null()}}
}
