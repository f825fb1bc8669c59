package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics records request and generation spans in Sentry.
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // spans are dropped by the SDK when Sentry is not initialised
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordGeneration records one provider call as a child span and tags the
// surrounding transaction with its token usage.
func (m *SentryMetrics) RecordGeneration(ctx context.Context, obs generation.Observation) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("generation.operation", string(obs.Operation))
		transaction.SetTag("generation.model", obs.Model)
		transaction.SetData("generation.total_tokens", obs.Usage.TotalTokens)
		transaction.SetData("generation.input_tokens", obs.Usage.InputTokens)
		transaction.SetData("generation.output_tokens", obs.Usage.OutputTokens)
	}

	span := sentry.StartSpan(ctx, "generation."+string(obs.Operation))
	span.StartTime = time.Now().Add(-obs.Duration)
	defer span.Finish()

	span.SetTag("operation", string(obs.Operation))
	span.SetTag("model", obs.Model)
	span.SetTag("provider", obs.Provider)
	span.SetTag("success", fmt.Sprintf("%t", obs.Err == nil))

	span.SetData("duration_ms", obs.Duration.Milliseconds())
	span.SetData("total_tokens", obs.Usage.TotalTokens)
	span.SetData("input_tokens", obs.Usage.InputTokens)
	span.SetData("output_tokens", obs.Usage.OutputTokens)

	switch generation.KindOf(obs.Err) {
	case 0:
		span.Status = sentry.SpanStatusOK
	case generation.KindConfiguration:
		span.Status = sentry.SpanStatusFailedPrecondition
	case generation.KindShape:
		span.Status = sentry.SpanStatusDataLoss
	default:
		span.Status = sentry.SpanStatusUnavailable
	}
	if obs.Err != nil {
		span.SetTag("error_kind", generation.KindOf(obs.Err).String())
	}

	span.Description = fmt.Sprintf("Generation: %s (%s)", obs.Operation, obs.Model)
}
