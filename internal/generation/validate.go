package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// validateShape checks a decoded reply against a JSON-Schema-shaped map. Only
// type, required and nesting are checked; numeric bounds and array lengths are
// advisory.
func validateShape(schema map[string]any, value any) error {
	return validateNode("$", schema, value)
}

func validateNode(path string, schema map[string]any, value any) error {
	want, _ := schema["type"].(string)

	switch want {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", path, describe(value))
		}
		required, _ := schema["required"].([]string)
		for _, name := range required {
			if v, present := obj[name]; !present || v == nil {
				return fmt.Errorf("%s: missing required field %q", path, name)
			}
		}
		props, _ := schema["properties"].(map[string]any)
		for name, raw := range props {
			v, present := obj[name]
			if !present || v == nil {
				continue
			}
			propSchema, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if err := validateNode(path+"."+name, propSchema, v); err != nil {
				return err
			}
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", path, describe(value))
		}
		items, _ := schema["items"].(map[string]any)
		if items == nil {
			return nil
		}
		for i, v := range arr {
			if err := validateNode(fmt.Sprintf("%s[%d]", path, i), items, v); err != nil {
				return err
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %s", path, describe(value))
		}
	case "integer":
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Errorf("%s: expected integer, got %s", path, describe(value))
		}
		if _, err := n.Int64(); err != nil {
			return fmt.Errorf("%s: expected integer, got %s", path, n.String())
		}
	case "number":
		if _, ok := value.(json.Number); !ok {
			return fmt.Errorf("%s: expected number, got %s", path, describe(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %s", path, describe(value))
		}
	}
	return nil
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// decodeReply parses raw as JSON, validates it against schema, and decodes the
// validated document into out.
func decodeReply(raw string, schema map[string]any, out any) error {
	body := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("reply has trailing data after the JSON document")
	}

	if err := validateShape(schema, doc); err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
