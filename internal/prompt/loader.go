package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/ideaforge-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// Template is one catalogue entry: a system instruction and a user instruction,
// both in text/template syntax.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Catalogue is the parsed prompt file.
type Catalogue struct {
	Version int                 `yaml:"version"`
	Prompts map[string]Template `yaml:"prompts"`
}

type Loader struct {
	source []byte

	once      sync.Once
	catalogue *Catalogue
	err       error
}

// NewPromptLoader returns a loader over the embedded prompt catalogue.
func NewPromptLoader() *Loader {
	return NewPromptLoaderFromBytes(embedded.PromptsYAML)
}

// NewPromptLoaderFromBytes returns a loader over an arbitrary YAML document.
func NewPromptLoaderFromBytes(source []byte) *Loader {
	return &Loader{source: source}
}

// Catalogue parses the YAML on first use and caches the result.
func (l *Loader) Catalogue() (*Catalogue, error) {
	l.once.Do(func() {
		var c Catalogue
		if err := yaml.Unmarshal(l.source, &c); err != nil {
			l.err = fmt.Errorf("failed to parse prompt catalogue: %w", err)
			return
		}
		if len(c.Prompts) == 0 {
			l.err = fmt.Errorf("prompt catalogue is empty")
			return
		}
		l.catalogue = &c
	})
	return l.catalogue, l.err
}

// GetTemplate returns the raw template for a prompt key.
func (l *Loader) GetTemplate(key string) (Template, error) {
	c, err := l.Catalogue()
	if err != nil {
		return Template{}, err
	}
	t, ok := c.Prompts[key]
	if !ok {
		return Template{}, fmt.Errorf("no prompt template for %q", key)
	}
	return Template{
		System: strings.TrimSpace(t.System),
		User:   strings.TrimSpace(t.User),
	}, nil
}

// Keys lists every prompt key in the catalogue.
func (l *Loader) Keys() ([]string, error) {
	c, err := l.Catalogue()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(c.Prompts))
	for k := range c.Prompts {
		keys = append(keys, k)
	}
	return keys, nil
}
