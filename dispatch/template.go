package dispatch

import (
	"encoding/json"
	"strings"

	"github.com/mapy-io/mapy/repo"
)

// ActiveTemplateValues picks the value set a block renders with: the
// active variant when one is selected and exists, else the first
// variant, else the block's flat legacy values
func ActiveTemplateValues(block repo.Block) []repo.TemplateValue {
	if block.ActiveVariantID != "" {
		for _, variant := range block.TemplateVariants {
			if variant.ID == block.ActiveVariantID {
				return variant.Values
			}
		}
	}
	if len(block.TemplateVariants) > 0 {
		return block.TemplateVariants[0].Values
	}
	return block.TemplateValues
}

// MergedTemplateValues appends path-captured parameters to the active
// values. Captures never overwrite an existing key; synthesized entries
// carry a path-param-<key> id
func MergedTemplateValues(m *BlockMatch) []repo.TemplateValue {
	values := append([]repo.TemplateValue{}, ActiveTemplateValues(m.Block)...)
	for key, value := range m.Params {
		exists := false
		for _, item := range values {
			if item.Key == key {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		values = append(values, repo.TemplateValue{
			ID:        "path-param-" + key,
			Key:       key,
			Value:     value,
			ValueType: "string",
		})
	}
	return values
}

// RenderTemplate substitutes every {{key}} token left-to-right in value
// order. Replacement is literal and does not re-scan: no escape syntax,
// no recursion
func RenderTemplate(template string, values []repo.TemplateValue) string {
	out := template
	for _, value := range values {
		if value.Key == "" {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+value.Key+"}}", substitutionString(value))
	}
	return out
}

// substitutionString resolves a value to the text spliced into the
// template. Array-typed values parse as JSON and keep only enabled
// items: objects contribute their "v" when "e" is true (both
// defaulted), raw strings contribute themselves, anything else is
// dropped. Unparseable input falls back to the raw string, blank input
// becomes "[]"
func substitutionString(value repo.TemplateValue) string {
	if value.ValueType != "array" {
		return value.Value
	}

	trimmed := strings.TrimSpace(value.Value)
	if trimmed == "" {
		return "[]"
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return value.Value
	}
	items, ok := parsed.([]interface{})
	if !ok {
		return value.Value
	}

	enabled := []string{}
	for _, item := range items {
		switch it := item.(type) {
		case map[string]interface{}:
			v, _ := it["v"].(string)
			e := true
			if b, ok := it["e"].(bool); ok {
				e = b
			}
			if e {
				enabled = append(enabled, v)
			}
		case string:
			enabled = append(enabled, it)
		}
	}

	data, err := json.Marshal(enabled)
	if err != nil {
		return value.Value
	}
	return string(data)
}

// NormalizeJSONQuotes replaces Unicode left/right double quotation
// marks with ASCII quotes, tolerating values pasted from rich-text
// editors
func NormalizeJSONQuotes(value string) string {
	value = strings.ReplaceAll(value, "“", `"`)
	return strings.ReplaceAll(value, "”", `"`)
}
