package observability

import (
	"context"
	"time"

	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
)

// langfuseAPI is the part of the Langfuse SDK used by the tracer.
type langfuseAPI interface {
	Trace(t *model.Trace) (*model.Trace, error)
	Generation(g *model.Generation, parentID *string) (*model.Generation, error)
	GenerationEnd(g *model.Generation) (*model.Generation, error)
	Flush(ctx context.Context)
}

// Tracer sends every generation call to Langfuse as a trace with one
// generation observation. A disabled tracer does nothing.
type Tracer struct {
	client  langfuseAPI
	enabled bool
}

// NewTracer creates a tracer from configuration. The SDK reads LANGFUSE_HOST,
// LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY from the environment.
func NewTracer(ctx context.Context, cfg *config.Config) *Tracer {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		logger.Info("Langfuse tracing disabled", logger.Fields{"enabled_flag": cfg.LangfuseEnabled})
		return &Tracer{}
	}

	logger.Info("Langfuse tracing enabled", logger.Fields{"host": cfg.LangfuseHost})
	return newTracer(langfuse.New(ctx))
}

func newTracer(client langfuseAPI) *Tracer {
	return &Tracer{client: client, enabled: client != nil}
}

// IsEnabled returns whether Langfuse is enabled
func (t *Tracer) IsEnabled() bool {
	return t != nil && t.enabled
}

// ObserveGeneration implements generation.Observer.
func (t *Tracer) ObserveGeneration(ctx context.Context, obs generation.Observation) {
	if !t.IsEnabled() {
		return
	}

	metadata := map[string]interface{}{
		"operation": string(obs.Operation),
		"provider":  obs.Provider,
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	trace, err := t.client.Trace(&model.Trace{
		Name:     "ideaforge-" + string(obs.Operation),
		Metadata: metadata,
	})
	if err != nil {
		logger.Warn("Failed to create Langfuse trace", logger.Fields{"error": err.Error()})
		return
	}

	end := time.Now()
	start := end.Add(-obs.Duration)
	cost := CalculateCost(obs.Model, obs.Usage)

	gen := &model.Generation{
		TraceID:   trace.ID,
		Name:      string(obs.Operation),
		Model:     obs.Model,
		StartTime: &start,
		Metadata: map[string]interface{}{
			"cost_usd": cost,
		},
		Input: []map[string]string{
			{"role": "system", "content": obs.System},
			{"role": "user", "content": obs.Prompt},
		},
	}
	gen, err = t.client.Generation(gen, nil)
	if err != nil {
		logger.Warn("Failed to create Langfuse generation", logger.Fields{"error": err.Error()})
		return
	}

	gen.EndTime = &end
	gen.Output = obs.Output
	gen.Usage = model.Usage{
		Input:     obs.Usage.InputTokens,
		Output:    obs.Usage.OutputTokens,
		Total:     obs.Usage.TotalTokens,
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}
	if obs.Err != nil {
		gen.Level = model.ObservationLevelError
		gen.StatusMessage = generation.KindOf(obs.Err).String() + ": " + obs.Err.Error()
	}
	if _, err := t.client.GenerationEnd(gen); err != nil {
		logger.Warn("Failed to end Langfuse generation", logger.Fields{"error": err.Error()})
	}
}

// Flush sends queued events. Call it on shutdown.
func (t *Tracer) Flush(ctx context.Context) {
	if t.IsEnabled() {
		t.client.Flush(ctx)
	}
}

type contextKey string

// RequestIDKey carries the HTTP request id into generation contexts.
const RequestIDKey contextKey = "request_id"
