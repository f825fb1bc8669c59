package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
)

type fakeCloudWatch struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range in.MetricData {
		f.names = append(f.names, aws.ToString(d.MetricName))
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func failure(op generation.Operation, kind generation.Kind) error {
	return &generation.Error{Op: op, Kind: kind, Message: op.FailureMessage(), Err: errors.New("cause")}
}

func TestRecorder_Snapshot(t *testing.T) {
	r := NewRecorder(nil, nil)
	ctx := context.Background()

	r.ObserveGeneration(ctx, generation.Observation{
		Operation: generation.OpGenerateIdeas,
		Duration:  100 * time.Millisecond,
		Usage:     llm.Usage{TotalTokens: 40},
	})
	r.ObserveGeneration(ctx, generation.Observation{
		Operation: generation.OpGenerateIdeas,
		Duration:  300 * time.Millisecond,
		Err:       failure(generation.OpGenerateIdeas, generation.KindShape),
	})
	r.ObserveGeneration(ctx, generation.Observation{
		Operation: generation.OpCritiqueProposal,
		Duration:  time.Second,
		Err:       failure(generation.OpCritiqueProposal, generation.KindTransport),
	})

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	assert.Equal(t, "critique_proposal", snap[0].Operation)
	assert.Equal(t, map[string]int64{"transport": 1}, snap[0].FailuresByKind)

	ideas := snap[1]
	assert.Equal(t, "generate_ideas", ideas.Operation)
	assert.Equal(t, int64(2), ideas.Calls)
	assert.Equal(t, int64(1), ideas.Failures)
	assert.Equal(t, int64(40), ideas.TotalTokens)
	assert.InDelta(t, 200.0, ideas.AvgDurationMS, 0.001)
	assert.Equal(t, map[string]int64{"shape": 1}, ideas.FailuresByKind)

	// Snapshots are copies.
	ideas.FailuresByKind["shape"] = 99
	assert.Equal(t, int64(1), r.Snapshot()[1].FailuresByKind["shape"])
}

func TestCloudWatchClient_RecordGeneration(t *testing.T) {
	fake := &fakeCloudWatch{}
	client := NewClientWithAPI(fake, "production")
	require.True(t, client.Enabled())

	client.RecordGeneration(generation.Observation{Operation: generation.OpExpandTopic, Model: "gemini-2.5-flash"})
	client.RecordGeneration(generation.Observation{
		Operation: generation.OpExpandTopic,
		Model:     "gemini-2.5-flash",
		Err:       failure(generation.OpExpandTopic, generation.KindTransport),
	})
	client.RecordAPIRequest("/api/v1/generate/topics", 502, time.Second)
	client.Flush()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.names, "GenerationDuration")
	assert.Contains(t, fake.names, "GenerationTokens/Total")
	assert.Contains(t, fake.names, "APIErrors")
	assert.Contains(t, fake.names, "APILatency")

	errorsSeen := 0
	for _, n := range fake.names {
		if n == "GenerationErrors" {
			errorsSeen++
		}
	}
	assert.Equal(t, 1, errorsSeen)
}

func TestCloudWatchClient_DisabledOutsideProduction(t *testing.T) {
	client, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	// No-ops, including on a nil client.
	client.RecordGeneration(generation.Observation{})
	client.Flush()
	var nilClient *Client
	nilClient.RecordAPIRequest("/", 200, time.Millisecond)
	nilClient.Flush()
}

func TestSentryMetrics_NoHubDoesNotPanic(t *testing.T) {
	m := NewSentryMetrics()
	m.RecordAPIRequest(context.Background(), "/health", 200, time.Millisecond)
	m.RecordGeneration(context.Background(), generation.Observation{
		Operation: generation.OpExtractText,
		Err:       failure(generation.OpExtractText, generation.KindConfiguration),
	})
}
