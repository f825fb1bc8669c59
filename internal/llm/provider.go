package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when no credential is configured for a provider.
// It is raised before any client is constructed, so no network activity happens.
var ErrMissingAPIKey = errors.New("llm API key not configured")

// ErrAttachmentsUnsupported is returned by providers that cannot take inline binary content
var ErrAttachmentsUnsupported = errors.New("provider does not support inline attachments")

// Provider defines the interface for LLM providers
// A provider performs exactly one upstream call per Generate and never retries.
type Provider interface {
	// Generate sends the request and returns the raw text reply.
	// When OutputSchema is set the provider MUST ask the endpoint for JSON matching it.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string
}

// ProviderSource resolves a provider for a model at call time
type ProviderSource interface {
	ProviderFor(ctx context.Context, model string) (Provider, error)
}

// GenerationRequest contains all parameters needed for one generation call
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	// Attachment carries inline document bytes (text extraction)
	Attachment *Attachment
	// Structured output schema; nil means a plain-text reply
	OutputSchema *OutputSchema
}

// Attachment is binary content sent inline with the prompt
type Attachment struct {
	Data     []byte
	MIMEType string
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage is provider-neutral token accounting
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Fields returns the usage as a loggable map
func (u Usage) Fields() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}
