package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

// OperationStats aggregates provider calls of one operation since start-up.
type OperationStats struct {
	Operation      string           `json:"operation"`
	Calls          int64            `json:"calls"`
	Failures       int64            `json:"failures"`
	FailuresByKind map[string]int64 `json:"failures_by_kind,omitempty"`
	TotalTokens    int64            `json:"total_tokens"`
	AvgDurationMS  float64          `json:"avg_duration_ms"`

	totalDuration time.Duration
}

// Recorder is a generation.Observer that keeps in-process totals and forwards
// every observation to Sentry and CloudWatch.
type Recorder struct {
	sentry     *SentryMetrics
	cloudwatch *Client

	mu    sync.Mutex
	stats map[generation.Operation]*OperationStats
}

// NewRecorder creates a recorder. Either sink may be nil.
func NewRecorder(sentry *SentryMetrics, cloudwatch *Client) *Recorder {
	return &Recorder{
		sentry:     sentry,
		cloudwatch: cloudwatch,
		stats:      make(map[generation.Operation]*OperationStats),
	}
}

func (r *Recorder) ObserveGeneration(ctx context.Context, obs generation.Observation) {
	r.mu.Lock()
	st, ok := r.stats[obs.Operation]
	if !ok {
		st = &OperationStats{Operation: string(obs.Operation)}
		r.stats[obs.Operation] = st
	}
	st.Calls++
	st.TotalTokens += int64(obs.Usage.TotalTokens)
	st.totalDuration += obs.Duration
	if obs.Err != nil {
		st.Failures++
		if st.FailuresByKind == nil {
			st.FailuresByKind = make(map[string]int64)
		}
		st.FailuresByKind[generation.KindOf(obs.Err).String()]++
	}
	r.mu.Unlock()

	if r.sentry != nil {
		r.sentry.RecordGeneration(ctx, obs)
	}
	r.cloudwatch.RecordGeneration(obs)
}

// RecordAPIRequest forwards an HTTP request measurement to both sinks.
func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if r.sentry != nil {
		r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
	r.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
}

// Snapshot returns a copy of the totals, sorted by operation.
func (r *Recorder) Snapshot() []OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OperationStats, 0, len(r.stats))
	for _, st := range r.stats {
		cp := *st
		if st.FailuresByKind != nil {
			cp.FailuresByKind = make(map[string]int64, len(st.FailuresByKind))
			for k, v := range st.FailuresByKind {
				cp.FailuresByKind[k] = v
			}
		}
		if cp.Calls > 0 {
			cp.AvgDurationMS = float64(cp.totalDuration.Milliseconds()) / float64(cp.Calls)
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}
