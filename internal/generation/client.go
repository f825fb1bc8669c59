package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/prompt"
)

const (
	DefaultFastModel = "gemini-2.5-flash"
	DefaultProModel  = "gemini-2.5-pro"

	rawReplyLogLimit = 2000
)

// Observation describes one finished provider call. Err is nil on success and
// a *Error otherwise, including replies that failed validation.
type Observation struct {
	Operation Operation
	Model     string
	Provider  string
	System    string
	Prompt    string
	Output    string
	Usage     llm.Usage
	Duration  time.Duration
	Err       error
}

// Observer receives an Observation after every provider call, successful or not.
type Observer interface {
	ObserveGeneration(ctx context.Context, obs Observation)
}

// Client runs generation operations against an llm.Provider. It holds no
// per-call state and is safe for concurrent use. Each operation makes at most
// one provider call and never retries.
type Client struct {
	providers llm.ProviderSource
	prompts   *prompt.Builder
	fastModel string
	proModel  string
	observers []Observer
}

type Option func(*Client)

// WithModels overrides the fast and pro model identifiers. Empty values keep the default.
func WithModels(fast, pro string) Option {
	return func(c *Client) {
		if fast != "" {
			c.fastModel = fast
		}
		if pro != "" {
			c.proModel = pro
		}
	}
}

func WithPromptBuilder(b *prompt.Builder) Option {
	return func(c *Client) {
		c.prompts = b
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewClient creates a generation client.
func NewClient(providers llm.ProviderSource, opts ...Option) *Client {
	c := &Client{
		providers: providers,
		prompts:   prompt.NewPromptBuilder(),
		fastModel: DefaultFastModel,
		proModel:  DefaultProModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckPrompts verifies that every operation has a prompt template, so a broken
// catalogue is caught at startup rather than on the first request.
func (c *Client) CheckPrompts() error {
	keys := make([]string, len(Operations))
	for i, op := range Operations {
		keys[i] = string(op)
	}
	missing, err := c.prompts.Missing(keys...)
	if err != nil {
		return fmt.Errorf("load prompt catalogue: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt catalogue has no template for %s", strings.Join(missing, ", "))
	}
	return nil
}

// ModelFor returns the model identifier used for op.
func (c *Client) ModelFor(op Operation) string {
	if operationTable[op].tier == tierPro {
		return c.proModel
	}
	return c.fastModel
}

// ExpandTopic returns related, more specific topics for topic.
func (c *Client) ExpandTopic(ctx context.Context, topic string) ([]string, error) {
	return run(ctx, c, OpExpandTopic, prompt.Data{Topic: topic, Count: expandTopicCount}, nil,
		func(env *topicsEnvelope) []string { return env.Topics })
}

// GenerateIdeas returns research ideas for a topic.
func (c *Client) GenerateIdeas(ctx context.Context, in IdeasInput) ([]Idea, error) {
	data := prompt.Data{
		Topic:      in.Topic,
		Context:    in.Context,
		Industrial: in.Industrial,
		Count:      ideaCount,
	}
	return run(ctx, c, OpGenerateIdeas, data, nil,
		func(env *ideasEnvelope) []Idea { return env.Ideas })
}

// AnalyzeLiterature returns one analysis per title. Order is not guaranteed to
// follow in.Titles; match results by title.
func (c *Client) AnalyzeLiterature(ctx context.Context, in LiteratureInput) ([]LiteratureAnalysis, error) {
	data := prompt.Data{
		Topic:      in.Topic,
		Context:    in.Context,
		Titles:     in.Titles,
		Industrial: in.Industrial,
	}
	return run(ctx, c, OpAnalyzeLiterature, data, nil,
		func(env *analysesEnvelope) []LiteratureAnalysis { return env.Analyses })
}

// ExtractText sends content inline and returns the plain text the model read from it.
func (c *Client) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	attachment := &llm.Attachment{Data: content, MIMEType: mimeType}
	resp, err := c.call(ctx, OpExtractText, prompt.Data{MIMEType: mimeType}, attachment, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// GenerateResearchQuestions returns research questions for a project context.
func (c *Client) GenerateResearchQuestions(ctx context.Context, researchContext string) ([]string, error) {
	return run(ctx, c, OpResearchQuestions, prompt.Data{Context: researchContext}, nil,
		func(env *questionsEnvelope) []string { return env.Questions })
}

// GenerateExperimentDesigns returns experiment designs for a project context.
func (c *Client) GenerateExperimentDesigns(ctx context.Context, researchContext string) ([]ExperimentDesign, error) {
	return run(ctx, c, OpExperimentDesigns, prompt.Data{Context: researchContext}, nil,
		func(env *designsEnvelope) []ExperimentDesign { return env.Designs })
}

// CritiqueProposal red-teams a proposal using the pro model.
func (c *Client) CritiqueProposal(ctx context.Context, proposal string) (*RedTeamAnalysis, error) {
	return run(ctx, c, OpCritiqueProposal, prompt.Data{Context: proposal}, nil,
		func(env *RedTeamAnalysis) *RedTeamAnalysis { return env })
}

// Run dispatches req to the matching operation.
func (c *Client) Run(ctx context.Context, req Request) (Result, error) {
	switch req.Operation {
	case OpExpandTopic:
		topics, err := c.ExpandTopic(ctx, req.Topic)
		if err != nil {
			return nil, err
		}
		return TopicList(topics), nil
	case OpGenerateIdeas:
		ideas, err := c.GenerateIdeas(ctx, IdeasInput{Topic: req.Topic, Context: req.Context, Industrial: req.Industrial})
		if err != nil {
			return nil, err
		}
		return IdeaList(ideas), nil
	case OpAnalyzeLiterature:
		analyses, err := c.AnalyzeLiterature(ctx, LiteratureInput{
			Titles:     req.Titles,
			Topic:      req.Topic,
			Context:    req.Context,
			Industrial: req.Industrial,
		})
		if err != nil {
			return nil, err
		}
		return LiteratureList(analyses), nil
	case OpExtractText:
		text, err := c.ExtractText(ctx, req.Content, req.MIMEType)
		if err != nil {
			return nil, err
		}
		return ExtractedText(text), nil
	case OpResearchQuestions:
		questions, err := c.GenerateResearchQuestions(ctx, req.Context)
		if err != nil {
			return nil, err
		}
		return QuestionList(questions), nil
	case OpExperimentDesigns:
		designs, err := c.GenerateExperimentDesigns(ctx, req.Context)
		if err != nil {
			return nil, err
		}
		return DesignList(designs), nil
	case OpCritiqueProposal:
		return c.CritiqueProposal(ctx, req.Context)
	default:
		return nil, fmt.Errorf("unknown generation operation %q", req.Operation)
	}
}

// run performs the call for a schema-constrained operation, validates the reply
// and unwraps the envelope E into the result T.
func run[E any, T any](
	ctx context.Context,
	c *Client,
	op Operation,
	data prompt.Data,
	attachment *llm.Attachment,
	unwrap func(*E) T,
) (T, error) {
	var zero T

	env := new(E)
	decode := func(resp *llm.GenerationResponse) error {
		if err := decodeReply(resp.Text, schemas[op].Schema, env); err != nil {
			logger.Error("Generation reply failed validation", err, logger.Fields{
				"operation": string(op),
				"model":     c.ModelFor(op),
				"raw_reply": logger.Truncate(resp.Text, rawReplyLogLimit),
			})
			return shapeError(op, err)
		}
		return nil
	}

	if _, err := c.call(ctx, op, data, attachment, decode); err != nil {
		return zero, err
	}
	return unwrap(env), nil
}

// call builds the prompt, resolves the provider and performs exactly one
// provider call. A non-nil check runs on the reply before observers are
// notified, so they see the final outcome.
func (c *Client) call(
	ctx context.Context,
	op Operation,
	data prompt.Data,
	attachment *llm.Attachment,
	check func(*llm.GenerationResponse) error,
) (*llm.GenerationResponse, error) {
	model := c.ModelFor(op)

	provider, err := c.providers.ProviderFor(ctx, model)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Warn("Generation refused: provider credential missing", logger.Fields{
				"operation": string(op),
				"model":     model,
			})
			return nil, configurationError(op, err)
		}
		return nil, transportError(op, err)
	}

	rendered, err := c.prompts.Build(string(op), data)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindConfiguration, Message: op.FailureMessage(), Err: err}
	}

	request := &llm.GenerationRequest{
		Model:        model,
		SystemPrompt: rendered.System,
		Prompt:       rendered.User,
		Attachment:   attachment,
		OutputSchema: schemas[op],
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, request)
	duration := time.Since(start)

	if err != nil {
		logger.Error("Generation request failed", err, logger.Fields{
			"operation":   string(op),
			"model":       model,
			"duration_ms": duration.Milliseconds(),
		})
		err = transportError(op, err)
	} else if check != nil {
		err = check(resp)
	}

	obs := Observation{
		Operation: op,
		Model:     model,
		Provider:  provider.Name(),
		System:    rendered.System,
		Prompt:    rendered.User,
		Duration:  duration,
		Err:       err,
	}
	if resp != nil {
		obs.Output = resp.Text
		obs.Usage = resp.Usage
	}
	recordCall(ctx, obs)
	for _, o := range c.observers {
		o.ObserveGeneration(ctx, obs)
	}

	if err != nil {
		return nil, err
	}

	logger.LogGenerationRequest(ctx, string(op), model, duration, logger.Fields(resp.Usage.Fields()), nil)
	return resp, nil
}
