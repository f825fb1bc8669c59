package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Data carries the values interpolated into prompt templates.
type Data struct {
	Topic      string
	Context    string
	Titles     []string
	Industrial bool
	MIMEType   string
	Count      int
}

// Rendered is a ready-to-send pair of instructions.
type Rendered struct {
	System string
	User   string
}

// Builder renders catalogue templates. Parsed templates are cached per key.
type Builder struct {
	loader *Loader

	mu     sync.Mutex
	parsed map[string]*parsedTemplate
}

type parsedTemplate struct {
	system *template.Template
	user   *template.Template
}

// NewPromptBuilder creates a builder over the embedded catalogue.
func NewPromptBuilder() *Builder {
	return NewPromptBuilderWithLoader(NewPromptLoader())
}

// NewPromptBuilderWithLoader creates a builder over the given loader.
func NewPromptBuilderWithLoader(loader *Loader) *Builder {
	return &Builder{
		loader: loader,
		parsed: make(map[string]*parsedTemplate),
	}
}

// Build renders the system and user instructions for key.
func (b *Builder) Build(key string, data Data) (Rendered, error) {
	pt, err := b.templateFor(key)
	if err != nil {
		return Rendered{}, err
	}

	system, err := execute(pt.system, data)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s system prompt: %w", key, err)
	}
	user, err := execute(pt.user, data)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s user prompt: %w", key, err)
	}

	return Rendered{System: system, User: user}, nil
}

// Missing returns the keys in want that have no catalogue entry.
func (b *Builder) Missing(want ...string) ([]string, error) {
	have, err := b.loader.Keys()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(have))
	for _, k := range have {
		known[k] = true
	}
	var missing []string
	for _, k := range want {
		if !known[k] {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func (b *Builder) templateFor(key string) (*parsedTemplate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pt, ok := b.parsed[key]; ok {
		return pt, nil
	}

	raw, err := b.loader.GetTemplate(key)
	if err != nil {
		return nil, err
	}

	system, err := template.New(key + ".system").Option("missingkey=error").Parse(raw.System)
	if err != nil {
		return nil, fmt.Errorf("parse %s system prompt: %w", key, err)
	}
	user, err := template.New(key + ".user").Option("missingkey=error").Parse(raw.User)
	if err != nil {
		return nil, fmt.Errorf("parse %s user prompt: %w", key, err)
	}

	pt := &parsedTemplate{system: system, user: user}
	b.parsed[key] = pt
	return pt, nil
}

func execute(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
