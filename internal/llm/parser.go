package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// cleanMarkdownWrapper strips ```json fences and surrounding chatter from a reply,
// keeping the outermost JSON object.
func cleanMarkdownWrapper(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return s
}

// decodeRecord validates a model reply against schema and converts it to a
// partial record. Any schema violation rejects the whole reply.
func decodeRecord(content string, schema Schema) (model.PartialRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &raw); err != nil {
		return model.PartialRecord{}, fmt.Errorf("invalid JSON: %w", err)
	}

	for _, name := range schema.RequiredFields() {
		if v, ok := raw[name]; !ok || v == nil {
			return model.PartialRecord{}, fmt.Errorf("missing required field %q", name)
		}
	}

	var rec model.PartialRecord
	for _, prop := range schema.Properties {
		value, ok := raw[prop.Name]
		if !ok || value == nil {
			continue
		}
		if err := assignField(&rec, prop, value); err != nil {
			return model.PartialRecord{}, fmt.Errorf("field %q: %w", prop.Name, err)
		}
	}

	return rec, nil
}

func assignField(rec *model.PartialRecord, prop Property, value any) error {
	switch prop.Type {
	case TypeNumber:
		n, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		return assignNumber(rec, prop.Name, n)

	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		s = strings.TrimSpace(s)
		if len(prop.Enum) > 0 && !containsFold(prop.Enum, s) {
			return fmt.Errorf("%q is not one of %v", s, prop.Enum)
		}
		if s == "" {
			if prop.Required {
				return fmt.Errorf("required string is empty")
			}
			return nil
		}
		return assignString(rec, prop.Name, s)

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		if prop.Name == "isRecurring" {
			rec.IsRecurring = &b
		}
		return nil

	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
		tags := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected array of strings, got %T element", item)
			}
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
		if prop.Name == "tags" && len(tags) > 0 {
			rec.Tags = tags
		}
		return nil
	}

	return fmt.Errorf("unsupported property type %s", prop.Type)
}

func assignNumber(rec *model.PartialRecord, name string, n float64) error {
	switch name {
	case "amount":
		if n < 0 {
			return fmt.Errorf("amount %v is negative", n)
		}
		rec.Amount = &n
	case "confidence":
		if n < 0 {
			n = 0
		} else if n > 1 {
			n = 1
		}
		rec.Confidence = &n
	}
	return nil
}

func assignString(rec *model.PartialRecord, name, s string) error {
	switch name {
	case "currency":
		c := strings.ToUpper(s)
		rec.Currency = &c
	case "merchant":
		rec.Merchant = &s
	case "description":
		rec.Description = &s
	case "category":
		c, ok := model.ParseCategory(s)
		if !ok || c == model.CategoryUncategorized {
			return fmt.Errorf("%q is not an extractable category", s)
		}
		rec.Category = &c
	case "date":
		d, err := model.ParseDate(s)
		if err != nil {
			return err
		}
		rec.Date = &d
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
