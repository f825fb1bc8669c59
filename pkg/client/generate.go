package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

type generateBody struct {
	Topic      string   `json:"topic,omitempty"`
	Context    string   `json:"context,omitempty"`
	Titles     []string `json:"titles,omitempty"`
	Industrial bool     `json:"industrial,omitempty"`
	Proposal   string   `json:"proposal,omitempty"`
	Content    []byte   `json:"content,omitempty"`
	MIMEType   string   `json:"mime_type,omitempty"`
}

type generateResponse struct {
	Operation      string          `json:"operation"`
	Model          string          `json:"model"`
	Result         json.RawMessage `json:"result"`
	CreditsCharged int             `json:"credits_charged"`
}

func (c *Client) generate(ctx context.Context, op generation.Operation, body generateBody, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var resp generateResponse
	if err := c.do(ctx, generatePath+op.Alias(), contentTypeJSON, payload, &resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", op.Alias(), err)
	}
	return nil
}

func (c *Client) ExpandTopic(ctx context.Context, topic string) ([]string, error) {
	var out []string
	err := c.generate(ctx, generation.OpExpandTopic, generateBody{Topic: topic}, &out)
	return out, err
}

func (c *Client) GenerateIdeas(ctx context.Context, in generation.IdeasInput) ([]generation.Idea, error) {
	var out []generation.Idea
	err := c.generate(ctx, generation.OpGenerateIdeas, generateBody{
		Topic:      in.Topic,
		Context:    in.Context,
		Industrial: in.Industrial,
	}, &out)
	return out, err
}

func (c *Client) AnalyzeLiterature(ctx context.Context, in generation.LiteratureInput) ([]generation.LiteratureAnalysis, error) {
	var out []generation.LiteratureAnalysis
	err := c.generate(ctx, generation.OpAnalyzeLiterature, generateBody{
		Topic:      in.Topic,
		Context:    in.Context,
		Titles:     in.Titles,
		Industrial: in.Industrial,
	}, &out)
	return out, err
}

// ExtractText uploads content as base64 JSON.
func (c *Client) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	var out string
	err := c.generate(ctx, generation.OpExtractText, generateBody{Content: content, MIMEType: mimeType}, &out)
	return out, err
}

func (c *Client) GenerateResearchQuestions(ctx context.Context, researchContext string) ([]string, error) {
	var out []string
	err := c.generate(ctx, generation.OpResearchQuestions, generateBody{Context: researchContext}, &out)
	return out, err
}

func (c *Client) GenerateExperimentDesigns(ctx context.Context, researchContext string) ([]generation.ExperimentDesign, error) {
	var out []generation.ExperimentDesign
	err := c.generate(ctx, generation.OpExperimentDesigns, generateBody{Context: researchContext}, &out)
	return out, err
}

func (c *Client) CritiqueProposal(ctx context.Context, proposal string) (*generation.RedTeamAnalysis, error) {
	out := &generation.RedTeamAnalysis{}
	if err := c.generate(ctx, generation.OpCritiqueProposal, generateBody{Proposal: proposal}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run dispatches req like generation.Client.Run, over HTTP.
func (c *Client) Run(ctx context.Context, req generation.Request) (generation.Result, error) {
	switch req.Operation {
	case generation.OpExpandTopic:
		topics, err := c.ExpandTopic(ctx, req.Topic)
		return wrap(generation.TopicList(topics), err)
	case generation.OpGenerateIdeas:
		ideas, err := c.GenerateIdeas(ctx, generation.IdeasInput{Topic: req.Topic, Context: req.Context, Industrial: req.Industrial})
		return wrap(generation.IdeaList(ideas), err)
	case generation.OpAnalyzeLiterature:
		analyses, err := c.AnalyzeLiterature(ctx, generation.LiteratureInput{
			Titles:     req.Titles,
			Topic:      req.Topic,
			Context:    req.Context,
			Industrial: req.Industrial,
		})
		return wrap(generation.LiteratureList(analyses), err)
	case generation.OpExtractText:
		text, err := c.ExtractText(ctx, req.Content, req.MIMEType)
		return wrap(generation.ExtractedText(text), err)
	case generation.OpResearchQuestions:
		questions, err := c.GenerateResearchQuestions(ctx, req.Context)
		return wrap(generation.QuestionList(questions), err)
	case generation.OpExperimentDesigns:
		designs, err := c.GenerateExperimentDesigns(ctx, req.Context)
		return wrap(generation.DesignList(designs), err)
	case generation.OpCritiqueProposal:
		critique, err := c.CritiqueProposal(ctx, req.Context)
		return wrap(critique, err)
	default:
		return nil, fmt.Errorf("unknown generation operation %q", req.Operation)
	}
}

func wrap[T generation.Result](v T, err error) (generation.Result, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
