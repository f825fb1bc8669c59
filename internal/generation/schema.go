package generation

import "github.com/Conceptual-Machines/ideaforge-api/internal/llm"

func stringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// schemas holds the reply shape of every schema-constrained operation.
// Extraction is plain text and has no entry.
var schemas = map[Operation]*llm.OutputSchema{
	OpExpandTopic: {
		Name:        "topic_expansion",
		Description: "Related, more specific research topics",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topics": stringArray("Five related, more specific research topics"),
			},
			"required": []string{"topics"},
		},
	},
	OpGenerateIdeas: {
		Name:        "research_ideas",
		Description: "Novel research ideas with gap scores",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ideas": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":    str("Short idea title"),
							"overview": str("One-paragraph overview"),
							"gapScore": map[string]any{
								"type":        "integer",
								"description": "Research gap score from 1 (crowded) to 10 (wide open)",
								"minimum":     1,
								"maximum":     10,
							},
							"literature": stringArray("Titles of supporting sources"),
							"industrial": map[string]any{
								"type":        "boolean",
								"description": "Whether the idea targets industrial application",
							},
						},
						"required": []string{"title", "overview", "gapScore", "literature", "industrial"},
					},
				},
			},
			"required": []string{"ideas"},
		},
	},
	OpAnalyzeLiterature: {
		Name:        "literature_analysis",
		Description: "One analysis per source title",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"analyses": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":       str("Source title, verbatim"),
							"summary":     str("Two-sentence summary"),
							"methodology": str("Likely methodology"),
							"relevance": map[string]any{
								"type":        "integer",
								"description": "Relevance to the topic from 1 to 100",
								"minimum":     1,
								"maximum":     100,
							},
							"link": str("Optional public URL"),
						},
						"required": []string{"title", "summary", "methodology", "relevance"},
					},
				},
			},
			"required": []string{"analyses"},
		},
	},
	OpResearchQuestions: {
		Name:        "research_questions",
		Description: "Three to five research questions",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": stringArray("Specific, testable research questions"),
			},
			"required": []string{"questions"},
		},
	},
	OpExperimentDesigns: {
		Name:        "experiment_designs",
		Description: "Two to three experiment designs",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"designs": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":             str("Design title"),
							"approach":          str("Overall approach"),
							"dataToBeCollected": str("Data to be collected"),
							"analysisMethods":   str("Analysis methods"),
						},
						"required": []string{"title", "approach", "dataToBeCollected", "analysisMethods"},
					},
				},
			},
			"required": []string{"designs"},
		},
	},
	OpCritiqueProposal: {
		Name:        "red_team_analysis",
		Description: "Critique of a research proposal",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"weaknesses":  stringArray("Two to three key weaknesses"),
				"assumptions": stringArray("Two to three hidden assumptions"),
				"questions":   stringArray("Three to four probing reviewer questions"),
			},
			"required": []string{"weaknesses", "assumptions", "questions"},
		},
	},
}

// SchemaFor returns the reply schema for op, or nil for plain-text operations.
func SchemaFor(op Operation) *llm.OutputSchema {
	return schemas[op]
}
