package observability

import (
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
)

const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// Gemini 2.5 pricing
	gemini25FlashInputPrice  = 0.0003
	gemini25FlashOutputPrice = 0.0025
	gemini25ProInputPrice    = 0.00125
	gemini25ProOutputPrice   = 0.01

	// GPT-4o pricing
	gpt4oInputPrice  = 0.005
	gpt4oOutputPrice = 0.015

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all models
var PricingTable = map[string]ModelPricing{
	"gemini-2.5-flash": {
		InputPricePer1K:  gemini25FlashInputPrice,
		OutputPricePer1K: gemini25FlashOutputPrice,
	},
	"gemini-2.5-pro": {
		InputPricePer1K:  gemini25ProInputPrice,
		OutputPricePer1K: gemini25ProOutputPrice,
	},
	"gpt-4o": {
		InputPricePer1K:  gpt4oInputPrice,
		OutputPricePer1K: gpt4oOutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
}

// PricingFor returns the pricing of model. Unknown models are priced as the
// default model of their provider.
func PricingFor(model string) ModelPricing {
	if pricing, ok := PricingTable[model]; ok {
		return pricing
	}
	if strings.HasPrefix(strings.ToLower(model), "gemini-") && strings.Contains(model, "pro") {
		return PricingTable["gemini-2.5-pro"]
	}
	if llm.ProviderNameForModel(model) == "openai" {
		return PricingTable["gpt-4o-mini"]
	}
	return PricingTable["gemini-2.5-flash"]
}

// CalculateCost calculates the cost in USD of one provider call
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing := PricingFor(model)
	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
