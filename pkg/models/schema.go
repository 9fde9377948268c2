package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FieldType is the declared type of a single stream field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDateTime FieldType = "datetime"
	TypeArray    FieldType = "array"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDateTime, TypeArray:
		return true
	}
	return false
}

// Schema maps field names to declared types. Treat it as read-only once loaded.
type Schema map[string]FieldType

// Has reports whether field is declared.
func (s Schema) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// FieldNames returns the declared field names in sorted order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// jsonSchema is the JSON-Schema shape used on disk and on the wire.
type jsonSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]jsonProperty `json:"properties"`
}

type jsonProperty struct {
	Type   jsonTypes `json:"type"`
	Format string    `json:"format,omitempty"`
}

// jsonTypes accepts both "string" and ["null", "string"].
type jsonTypes []string

func (t *jsonTypes) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = jsonTypes{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or a list of strings: %w", err)
	}
	*t = many
	return nil
}

// Emitted returns the schema records actually conform to on the wire: list
// fields are flattened into strings before emission.
func (s Schema) Emitted() Schema {
	out := make(Schema, len(s))
	for name, typ := range s {
		if typ == TypeArray {
			typ = TypeString
		}
		out[name] = typ
	}
	return out
}

// MarshalJSON renders the schema as a JSON-Schema object.
func (s Schema) MarshalJSON() ([]byte, error) {
	out := jsonSchema{Type: "object", Properties: make(map[string]jsonProperty, len(s))}
	for name, typ := range s {
		switch typ {
		case TypeDateTime:
			out.Properties[name] = jsonProperty{Type: jsonTypes{"null", "string"}, Format: "date-time"}
		default:
			out.Properties[name] = jsonProperty{Type: jsonTypes{"null", string(typ)}}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a JSON-Schema object into field types.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var in jsonSchema
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Properties == nil {
		return fmt.Errorf("schema has no properties")
	}
	parsed := make(Schema, len(in.Properties))
	for name, prop := range in.Properties {
		typ, err := prop.fieldType()
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		parsed[name] = typ
	}
	*s = parsed
	return nil
}

func (p jsonProperty) fieldType() (FieldType, error) {
	var found FieldType
	for _, t := range p.Type {
		if t == "null" {
			continue
		}
		if t == "integer" {
			t = string(TypeNumber)
		}
		found = FieldType(t)
	}
	if found == TypeString && p.Format == "date-time" {
		found = TypeDateTime
	}
	if !found.Valid() {
		return "", fmt.Errorf("unsupported type %v", []string(p.Type))
	}
	return found, nil
}
