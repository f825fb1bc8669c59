package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
)

// KeySource returns the API key for a provider name. Empty means not configured.
type KeySource interface {
	APIKeyFor(provider string) string
}

// ProviderFactory creates providers based on model name
type ProviderFactory struct {
	keys KeySource
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(keys KeySource) *ProviderFactory {
	return &ProviderFactory{keys: keys}
}

// ProviderFor returns the provider serving the given model.
// The key is looked up on every call; a missing key yields ErrMissingAPIKey.
func (f *ProviderFactory) ProviderFor(ctx context.Context, model string) (Provider, error) {
	name := ProviderNameForModel(model)

	apiKey := ""
	if f.keys != nil {
		apiKey = f.keys.APIKeyFor(name)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}

	switch name {
	case providerOpenAI:
		return NewOpenAIProvider(apiKey), nil
	default:
		return NewGeminiProvider(ctx, apiKey)
	}
}

// ProviderNameForModel infers the provider from the model name.
// GPT models use OpenAI; everything else goes to Gemini.
func ProviderNameForModel(model string) string {
	if strings.HasPrefix(strings.ToLower(model), "gpt-") {
		return providerOpenAI
	}
	return providerGemini
}
