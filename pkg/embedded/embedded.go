package embedded

import (
	_ "embed"
)

// PromptsYAML is the prompt catalogue used by internal/prompt.
//
//go:embed data/prompts.yaml
var PromptsYAML []byte
