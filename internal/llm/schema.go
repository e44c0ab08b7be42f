package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// PropertyType is a JSON type in an output schema.
type PropertyType string

// Supported property types.
const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeBoolean PropertyType = "boolean"
	TypeArray   PropertyType = "array" // array of strings
)

// Property is one field of an output schema.
type Property struct {
	Name        string
	Type        PropertyType
	Description string
	Enum        []string
	Required    bool
}

// Schema is the fixed JSON object shape a model must return.
type Schema struct {
	Name       string
	Properties []Property
}

// RequiredFields returns the names of required properties.
func (s Schema) RequiredFields() []string {
	var names []string
	for _, p := range s.Properties {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Property returns the named property.
func (s Schema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// JSONSchema renders the schema as a JSON Schema object. In strict mode every
// property is listed as required and optional ones become nullable, which is
// what OpenAI structured outputs demand.
func (s Schema) JSONSchema(strict bool) map[string]any {
	properties := make(map[string]any, len(s.Properties))
	required := make([]string, 0, len(s.Properties))

	for _, p := range s.Properties {
		prop := map[string]any{}
		var jsonType any = string(p.Type)
		if strict && !p.Required {
			jsonType = []string{string(p.Type), "null"}
		}
		prop["type"] = jsonType
		if p.Type == TypeArray {
			prop["items"] = map[string]any{"type": string(TypeString)}
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop

		if strict || p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	if strict {
		schema["additionalProperties"] = false
	}
	return schema
}

// Describe renders the schema as prompt text for providers without native schema support.
func (s Schema) Describe() string {
	var b strings.Builder
	b.WriteString("Respond with ONLY a JSON object with these fields:\n")
	for _, p := range s.Properties {
		req := "optional"
		if p.Required {
			req = "required"
		}
		typ := string(p.Type)
		if p.Type == TypeArray {
			typ = "array of strings"
		}
		fmt.Fprintf(&b, "- %q (%s, %s)", p.Name, typ, req)
		if len(p.Enum) > 0 {
			fmt.Fprintf(&b, " one of: %s", strings.Join(p.Enum, ", "))
		}
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Do not wrap the JSON in markdown or add commentary.")
	return b.String()
}

func categoryEnum() []string {
	return model.CategoryNames(model.ExtractableCategories)
}

// TextSchema is the output contract for free-text extraction.
func TextSchema() Schema {
	return Schema{
		Name: "transaction_from_text",
		Properties: []Property{
			{Name: "amount", Type: TypeNumber, Required: true, Description: "positive amount spent"},
			{Name: "currency", Type: TypeString, Required: true, Description: "ISO 4217 code"},
			{Name: "merchant", Type: TypeString, Description: "who was paid"},
			{Name: "category", Type: TypeString, Required: true, Enum: categoryEnum()},
			{Name: "date", Type: TypeString, Required: true, Description: "ISO date YYYY-MM-DD"},
			{Name: "description", Type: TypeString},
			{Name: "isRecurring", Type: TypeBoolean},
			{Name: "tags", Type: TypeArray},
			{Name: "confidence", Type: TypeNumber, Description: "0 to 1"},
		},
	}
}

// ImageSchema is the output contract for receipt images.
func ImageSchema() Schema {
	return Schema{
		Name: "transaction_from_receipt",
		Properties: []Property{
			{Name: "merchant", Type: TypeString, Required: true},
			{Name: "amount", Type: TypeNumber, Required: true, Description: "receipt total"},
			{Name: "currency", Type: TypeString, Required: true, Description: "ISO 4217 code"},
			{Name: "category", Type: TypeString, Required: true, Enum: categoryEnum()},
			{Name: "date", Type: TypeString, Required: true, Description: "ISO date YYYY-MM-DD"},
		},
	}
}
