package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
	"github.com/Conceptual-Machines/ideaforge-api/internal/prompt"
)

// stubProvider records every request and replies with a canned text or error.
type stubProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []*llm.GenerationRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(_ context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerationResponse{
		Text:  p.reply,
		Usage: llm.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
	}, nil
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *stubProvider) last() *llm.GenerationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type stubSource struct {
	provider llm.Provider
}

func (s *stubSource) ProviderFor(context.Context, string) (llm.Provider, error) {
	return s.provider, nil
}

type noKeys struct{}

func (noKeys) APIKeyFor(string) string { return "" }

func newStubClient(reply string, err error) (*Client, *stubProvider) {
	provider := &stubProvider{reply: reply, err: err}
	return NewClient(&stubSource{provider: provider}), provider
}

type opCase struct {
	op      Operation
	reply   string
	missing string
	invoke  func(ctx context.Context, c *Client) (any, error)
	want    any
}

func allOperationCases() []opCase {
	return []opCase{
		{
			op:      OpExpandTopic,
			reply:   `{"topics": ["A", "B", "C", "D", "E"]}`,
			missing: `{"subjects": ["A"]}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.ExpandTopic(ctx, "sustainable urban planning")
			},
			want: []string{"A", "B", "C", "D", "E"},
		},
		{
			op: OpGenerateIdeas,
			reply: `{"ideas": [
				{"title": "Mycelium insulation", "overview": "Grow panels.", "gapScore": 8,
				 "literature": ["Fungal composites review"], "industrial": false},
				{"title": "Urban heat maps", "overview": "Street sensors.", "gapScore": 4,
				 "literature": [], "industrial": true}
			]}`,
			missing: `{"ideas": [{"title": "No overview", "gapScore": 3, "literature": [], "industrial": false}]}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.GenerateIdeas(ctx, IdeasInput{Topic: "green buildings"})
			},
			want: []Idea{
				{Title: "Mycelium insulation", Overview: "Grow panels.", GapScore: 8, Literature: []string{"Fungal composites review"}},
				{Title: "Urban heat maps", Overview: "Street sensors.", GapScore: 4, Literature: []string{}, Industrial: true},
			},
		},
		{
			op: OpAnalyzeLiterature,
			reply: `{"analyses": [
				{"title": "Paper B", "summary": "S2", "methodology": "Survey", "relevance": 40},
				{"title": "Paper A", "summary": "S1", "methodology": "RCT", "relevance": 95, "link": "https://example.org/a"}
			]}`,
			missing: `{"analyses": [{"title": "Paper A", "summary": "S1", "relevance": 95}]}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.AnalyzeLiterature(ctx, LiteratureInput{Titles: []string{"Paper A", "Paper B"}, Topic: "t"})
			},
			want: []LiteratureAnalysis{
				{Title: "Paper B", Summary: "S2", Methodology: "Survey", Relevance: 40},
				{Title: "Paper A", Summary: "S1", Methodology: "RCT", Relevance: 95, Link: "https://example.org/a"},
			},
		},
		{
			op:    OpExtractText,
			reply: "  Abstract\n\nWe study things.  ",
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.ExtractText(ctx, []byte("%PDF-1.7"), "application/pdf")
			},
			want: "Abstract\n\nWe study things.",
		},
		{
			op:      OpResearchQuestions,
			reply:   `{"questions": ["Q1?", "Q2?", "Q3?"]}`,
			missing: `{}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.GenerateResearchQuestions(ctx, "soil microbiome")
			},
			want: []string{"Q1?", "Q2?", "Q3?"},
		},
		{
			op: OpExperimentDesigns,
			reply: `{"designs": [
				{"title": "Field trial", "approach": "Randomized plots", "dataToBeCollected": "Yield", "analysisMethods": "ANOVA"}
			]}`,
			missing: `{"designs": [{"title": "Field trial", "approach": "Randomized plots", "dataToBeCollected": "Yield"}]}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.GenerateExperimentDesigns(ctx, "soil microbiome")
			},
			want: []ExperimentDesign{
				{Title: "Field trial", Approach: "Randomized plots", DataToBeCollected: "Yield", AnalysisMethods: "ANOVA"},
			},
		},
		{
			op:      OpCritiqueProposal,
			reply:   `{"weaknesses": ["W1", "W2"], "assumptions": ["A1", "A2"], "questions": ["Q1", "Q2", "Q3"]}`,
			missing: `{"weaknesses": ["W1", "W2"], "assumptions": ["A1", "A2"]}`,
			invoke: func(ctx context.Context, c *Client) (any, error) {
				return c.CritiqueProposal(ctx, "We will cure everything.")
			},
			want: &RedTeamAnalysis{
				Weaknesses:  []string{"W1", "W2"},
				Assumptions: []string{"A1", "A2"},
				Questions:   []string{"Q1", "Q2", "Q3"},
			},
		},
	}
}

func TestClient_WellFormedReplies(t *testing.T) {
	for _, tc := range allOperationCases() {
		t.Run(string(tc.op), func(t *testing.T) {
			client, provider := newStubClient(tc.reply, nil)

			got, err := tc.invoke(context.Background(), client)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, 1, provider.calls())
			assert.Equal(t, SchemaFor(tc.op), provider.last().OutputSchema)
		})
	}
}

func TestClient_MissingRequiredField(t *testing.T) {
	for _, tc := range allOperationCases() {
		if tc.missing == "" {
			continue
		}
		t.Run(string(tc.op), func(t *testing.T) {
			client, _ := newStubClient(tc.missing, nil)

			got, err := tc.invoke(context.Background(), client)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerationFailed))
			assert.Equal(t, KindShape, KindOf(err))
			assert.Equal(t, tc.op.FailureMessage(), UserMessage(err))
			assert.True(t, isZero(got), "partial result returned: %#v", got)
		})
	}
}

func TestClient_TransportFailureIsNotRetried(t *testing.T) {
	for _, tc := range allOperationCases() {
		t.Run(string(tc.op), func(t *testing.T) {
			client, provider := newStubClient("", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"))

			got, err := tc.invoke(context.Background(), client)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerationFailed))
			assert.Equal(t, KindTransport, KindOf(err))
			assert.Equal(t, tc.op.FailureMessage(), UserMessage(err))
			assert.True(t, isZero(got))
			assert.Equal(t, 1, provider.calls())
		})
	}
}

func TestClient_CheckPrompts(t *testing.T) {
	tests := []struct {
		name    string
		client  *Client
		wantErr string
	}{
		{name: "embedded catalogue", client: NewClient(&stubSource{})},
		{
			name: "partial catalogue",
			client: NewClient(&stubSource{}, WithPromptBuilder(prompt.NewPromptBuilderWithLoader(
				prompt.NewPromptLoaderFromBytes([]byte("prompts:\n  expand_topic:\n    system: s\n    user: u\n"))))),
			wantErr: "no template for generate_ideas",
		},
		{
			name: "empty catalogue",
			client: NewClient(&stubSource{}, WithPromptBuilder(prompt.NewPromptBuilderWithLoader(
				prompt.NewPromptLoaderFromBytes([]byte("version: 1\n"))))),
			wantErr: "prompt catalogue is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.CheckPrompts()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_MissingCredentialMakesNoCalls(t *testing.T) {
	for _, tc := range allOperationCases() {
		t.Run(string(tc.op), func(t *testing.T) {
			client := NewClient(llm.NewProviderFactory(noKeys{}))

			got, err := tc.invoke(context.Background(), client)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGenerationFailed))
			assert.True(t, errors.Is(err, llm.ErrMissingAPIKey))
			assert.Equal(t, KindConfiguration, KindOf(err))
			assert.Equal(t, MissingKeyMessage, UserMessage(err))
			assert.True(t, isZero(got))
		})
	}
}

func TestClient_ExpandTopicExample(t *testing.T) {
	client, provider := newStubClient(`{"topics": ["A","B","C","D","E"]}`, nil)

	topics, err := client.ExpandTopic(context.Background(), "sustainable urban planning")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, topics)
	assert.Contains(t, provider.last().Prompt, "sustainable urban planning")
	assert.Equal(t, DefaultFastModel, provider.last().Model)
}

func TestClient_CritiqueMissingQuestions(t *testing.T) {
	client, provider := newStubClient(`{"weaknesses": ["W"], "assumptions": ["A"]}`, nil)

	analysis, err := client.CritiqueProposal(context.Background(), "proposal")
	require.Error(t, err)
	assert.Nil(t, analysis)
	assert.Equal(t, "Failed to critique proposal. Please try again.", UserMessage(err))
	assert.Equal(t, DefaultProModel, provider.last().Model)
}

func TestClient_IdeasIndustrialPhrasing(t *testing.T) {
	reply := `{"ideas": []}`
	academicClient, academic := newStubClient(reply, nil)
	industrialClient, industrial := newStubClient(reply, nil)

	_, err := academicClient.GenerateIdeas(context.Background(), IdeasInput{Topic: "battery recycling"})
	require.NoError(t, err)
	_, err = industrialClient.GenerateIdeas(context.Background(), IdeasInput{Topic: "battery recycling", Industrial: true})
	require.NoError(t, err)

	academicPrompt := academic.last().Prompt
	industrialPrompt := industrial.last().Prompt

	assert.NotEqual(t, academicPrompt, industrialPrompt)
	assert.Contains(t, industrialPrompt, "pilot-scale")
	assert.Contains(t, industrialPrompt, "patent")
	assert.NotContains(t, academicPrompt, "pilot-scale")
	assert.Equal(t, academic.last().OutputSchema, industrial.last().OutputSchema)
}

func TestClient_AnalyzeLiteratureEmptyTitles(t *testing.T) {
	client, provider := newStubClient(`{"analyses": []}`, nil)

	analyses, err := client.AnalyzeLiterature(context.Background(), LiteratureInput{Topic: "graphene"})
	require.NoError(t, err)
	assert.NotNil(t, analyses)
	assert.Empty(t, analyses)

	req := provider.last()
	assert.NotEmpty(t, req.Prompt)
	assert.NotNil(t, req.OutputSchema)
	assert.Equal(t, "literature_analysis", req.OutputSchema.Name)
}

func TestClient_ExtractTextSendsAttachment(t *testing.T) {
	client, provider := newStubClient("text", nil)

	_, err := client.ExtractText(context.Background(), []byte("bytes"), "image/png")
	require.NoError(t, err)

	req := provider.last()
	require.NotNil(t, req.Attachment)
	assert.Equal(t, []byte("bytes"), req.Attachment.Data)
	assert.Equal(t, "image/png", req.Attachment.MIMEType)
	assert.Nil(t, req.OutputSchema)
	assert.Contains(t, req.Prompt, "image/png")
}

func TestClient_ShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "Sure! Here are some topics:"},
		{name: "array instead of object", reply: `["A", "B"]`},
		{name: "wrong item type", reply: `{"topics": ["A", 2]}`},
		{name: "null field", reply: `{"topics": null}`},
		{name: "trailing data", reply: `{"topics": ["A"]} {"topics": ["B"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newStubClient(tt.reply, nil)

			topics, err := client.ExpandTopic(context.Background(), "x")
			require.Error(t, err)
			assert.Nil(t, topics)
			assert.Equal(t, KindShape, KindOf(err))
		})
	}
}

func TestClient_NonIntegerScoreRejected(t *testing.T) {
	client, _ := newStubClient(`{"ideas": [{"title": "t", "overview": "o", "gapScore": 7.5, "literature": [], "industrial": false}]}`, nil)

	ideas, err := client.GenerateIdeas(context.Background(), IdeasInput{Topic: "x"})
	require.Error(t, err)
	assert.Nil(t, ideas)
	assert.Equal(t, KindShape, KindOf(err))
}

func TestClient_AcceptsFencedJSON(t *testing.T) {
	client, _ := newStubClient("```json\n{\"questions\": [\"Q\"]}\n```", nil)

	questions, err := client.GenerateResearchQuestions(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q"}, questions)
}

func TestClient_Run(t *testing.T) {
	for _, tc := range allOperationCases() {
		t.Run(string(tc.op), func(t *testing.T) {
			client, _ := newStubClient(tc.reply, nil)

			result, err := client.Run(context.Background(), Request{
				Operation: tc.op,
				Topic:     "topic",
				Context:   "context",
				Titles:    []string{"Paper A"},
				Content:   []byte("data"),
				MIMEType:  "text/plain",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.op, result.Operation())
		})
	}

	client, _ := newStubClient("", nil)
	_, err := client.Run(context.Background(), Request{Operation: "compose_music"})
	assert.Error(t, err)
}

func TestClient_ModelSelection(t *testing.T) {
	client := NewClient(&stubSource{}, WithModels("fast-x", "pro-y"))

	for _, op := range Operations {
		want := "fast-x"
		if op == OpCritiqueProposal {
			want = "pro-y"
		}
		assert.Equal(t, want, client.ModelFor(op), op)
	}

	defaults := NewClient(&stubSource{}, WithModels("", ""))
	assert.Equal(t, DefaultFastModel, defaults.ModelFor(OpExpandTopic))
	assert.Equal(t, DefaultProModel, defaults.ModelFor(OpCritiqueProposal))
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []Observation
}

func (r *recordingObserver) ObserveGeneration(_ context.Context, obs Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, obs)
}

func TestClient_ObserverAndCallInfo(t *testing.T) {
	provider := &stubProvider{reply: `{"questions": ["Q"]}`}
	observer := &recordingObserver{}
	client := NewClient(&stubSource{provider: provider}, WithObserver(observer))

	ctx, info := TrackCall(context.Background())
	_, err := client.GenerateResearchQuestions(ctx, "x")
	require.NoError(t, err)

	require.Len(t, observer.obs, 1)
	assert.Equal(t, OpResearchQuestions, observer.obs[0].Operation)
	assert.Equal(t, "stub", observer.obs[0].Provider)
	assert.Equal(t, `{"questions": ["Q"]}`, observer.obs[0].Output)
	assert.NoError(t, observer.obs[0].Err)

	assert.Equal(t, DefaultFastModel, info.Model)
	assert.Equal(t, 30, info.Usage.TotalTokens)
}

func TestClient_ObserverSeesShapeFailure(t *testing.T) {
	provider := &stubProvider{reply: `{"questions": "not a list"}`}
	observer := &recordingObserver{}
	client := NewClient(&stubSource{provider: provider}, WithObserver(observer))

	_, err := client.GenerateResearchQuestions(context.Background(), "x")
	require.Error(t, err)

	require.Len(t, observer.obs, 1)
	assert.Equal(t, KindShape, KindOf(observer.obs[0].Err))
	assert.Equal(t, `{"questions": "not a list"}`, observer.obs[0].Output)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	client, provider := newStubClient(`{"topics": ["A"]}`, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topics, err := client.ExpandTopic(context.Background(), "x")
			assert.NoError(t, err)
			assert.Equal(t, []string{"A"}, topics)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, provider.calls())
}

func isZero(v any) bool {
	switch r := v.(type) {
	case nil:
		return true
	case []string:
		return r == nil
	case []Idea:
		return r == nil
	case []LiteratureAnalysis:
		return r == nil
	case []ExperimentDesign:
		return r == nil
	case *RedTeamAnalysis:
		return r == nil
	case string:
		return r == ""
	default:
		return false
	}
}
