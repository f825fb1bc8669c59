package prompt

import (
	"sort"
	"strings"
	"testing"
)

var expectedKeys = []string{
	"analyze_literature",
	"critique_proposal",
	"expand_topic",
	"experiment_designs",
	"extract_text",
	"generate_ideas",
	"research_questions",
}

func TestNewPromptLoader(t *testing.T) {
	loader := NewPromptLoader()
	if loader == nil {
		t.Fatal("NewPromptLoader() returned nil")
	}
}

func TestCatalogueHasEveryOperation(t *testing.T) {
	loader := NewPromptLoader()
	keys, err := loader.Keys()
	if err != nil {
		t.Fatalf("Keys() returned error: %v", err)
	}
	sort.Strings(keys)

	if strings.Join(keys, ",") != strings.Join(expectedKeys, ",") {
		t.Errorf("Keys() = %v, want %v", keys, expectedKeys)
	}
}

func TestGetTemplate(t *testing.T) {
	loader := NewPromptLoader()

	for _, key := range expectedKeys {
		t.Run(key, func(t *testing.T) {
			tmpl, err := loader.GetTemplate(key)
			if err != nil {
				t.Fatalf("GetTemplate(%q) returned error: %v", key, err)
			}
			if tmpl.System == "" {
				t.Errorf("GetTemplate(%q) has empty system prompt", key)
			}
			if tmpl.User == "" {
				t.Errorf("GetTemplate(%q) has empty user prompt", key)
			}
			if strings.HasPrefix(tmpl.User, "\n") || strings.HasSuffix(tmpl.User, "\n") {
				t.Errorf("GetTemplate(%q) user prompt is not trimmed", key)
			}
		})
	}
}

func TestGetTemplateUnknownKey(t *testing.T) {
	loader := NewPromptLoader()
	if _, err := loader.GetTemplate("compose_symphony"); err == nil {
		t.Error("GetTemplate() with unknown key should return error")
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	loader := NewPromptLoaderFromBytes([]byte("prompts: [unterminated"))
	if _, err := loader.Catalogue(); err == nil {
		t.Error("Catalogue() with invalid YAML should return error")
	}

	empty := NewPromptLoaderFromBytes([]byte("version: 1\n"))
	if _, err := empty.Catalogue(); err == nil {
		t.Error("Catalogue() with no prompts should return error")
	}
}
