package generation

import (
	"fmt"
	"strings"
)

// Operation names one of the supported generation requests. The value doubles as
// the prompt catalogue key.
type Operation string

const (
	OpExpandTopic       Operation = "expand_topic"
	OpGenerateIdeas     Operation = "generate_ideas"
	OpAnalyzeLiterature Operation = "analyze_literature"
	OpExtractText       Operation = "extract_text"
	OpResearchQuestions Operation = "research_questions"
	OpExperimentDesigns Operation = "experiment_designs"
	OpCritiqueProposal  Operation = "critique_proposal"
)

// Requested result counts.
const (
	expandTopicCount = 5
	ideaCount        = 3
)

// Operations lists every operation in a stable order.
var Operations = []Operation{
	OpExpandTopic,
	OpGenerateIdeas,
	OpAnalyzeLiterature,
	OpExtractText,
	OpResearchQuestions,
	OpExperimentDesigns,
	OpCritiqueProposal,
}

type tier int

const (
	tierFast tier = iota
	tierPro
)

type operationInfo struct {
	alias   string
	tier    tier
	failure string
}

var operationTable = map[Operation]operationInfo{
	OpExpandTopic:       {alias: "topics", tier: tierFast, failure: "Failed to expand topic. Please try again."},
	OpGenerateIdeas:     {alias: "ideas", tier: tierFast, failure: "Failed to generate ideas. Please try again."},
	OpAnalyzeLiterature: {alias: "literature", tier: tierFast, failure: "Failed to analyze literature. Please try again."},
	OpExtractText:       {alias: "extract", tier: tierFast, failure: "Failed to extract text from the document. Please try again."},
	OpResearchQuestions: {alias: "questions", tier: tierFast, failure: "Failed to generate research questions. Please try again."},
	OpExperimentDesigns: {alias: "designs", tier: tierFast, failure: "Failed to generate experiment designs. Please try again."},
	OpCritiqueProposal:  {alias: "critique", tier: tierPro, failure: "Failed to critique proposal. Please try again."},
}

func (op Operation) String() string {
	return string(op)
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	_, ok := operationTable[op]
	return ok
}

// Alias is the short name used in URLs and on the command line.
func (op Operation) Alias() string {
	return operationTable[op].alias
}

// FailureMessage is the user-displayable text for a failed call.
func (op Operation) FailureMessage() string {
	if info, ok := operationTable[op]; ok {
		return info.failure
	}
	return "Generation failed. Please try again."
}

// ParseOperation accepts either the operation name or its alias.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, info := range operationTable {
		if string(op) == s || info.alias == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown generation operation %q", s)
}
