package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
)

const (
	namespace                = "IdeaForge/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// PutMetricDataAPI is the part of the CloudWatch client used here.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      PutMetricDataAPI
	enabled     bool
	environment string
	inflight    sync.WaitGroup
}

// NewClient creates a new CloudWatch metrics client. Metrics are only sent in
// production.
func NewClient(ctx context.Context, environment string) (*Client, error) {
	if environment != "production" {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{environment: environment}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{environment: environment}, nil
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return NewClientWithAPI(cloudwatch.NewFromConfig(cfg), environment), nil
}

// NewClientWithAPI creates an enabled client around api.
func NewClientWithAPI(api PutMetricDataAPI, environment string) *Client {
	return &Client{client: api, enabled: api != nil, environment: environment}
}

// Enabled reports whether metrics are sent.
func (m *Client) Enabled() bool {
	return m != nil && m.enabled
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	metricName := "APIRequests"
	if statusCode >= httpStatusServerError {
		metricName = "APIErrors"
	}
	dimensions := []types.Dimension{
		{Name: aws.String("Endpoint"), Value: aws.String(endpoint)},
		{Name: aws.String("Environment"), Value: aws.String(m.environment)},
	}

	m.send(
		datum(metricName, 1, types.StandardUnitCount, dimensions),
		datum("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions),
	)
}

// RecordGeneration records duration, failures and token usage of a provider call.
func (m *Client) RecordGeneration(obs generation.Observation) {
	if !m.Enabled() {
		return
	}

	dimensions := []types.Dimension{
		{Name: aws.String("Operation"), Value: aws.String(string(obs.Operation))},
		{Name: aws.String("Model"), Value: aws.String(obs.Model)},
		{Name: aws.String("Environment"), Value: aws.String(m.environment)},
	}

	data := []types.MetricDatum{
		datum("GenerationDuration", float64(obs.Duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions),
		datum("GenerationTokens/Total", float64(obs.Usage.TotalTokens), types.StandardUnitCount, dimensions),
		datum("GenerationTokens/Input", float64(obs.Usage.InputTokens), types.StandardUnitCount, dimensions),
		datum("GenerationTokens/Output", float64(obs.Usage.OutputTokens), types.StandardUnitCount, dimensions),
	}
	if obs.Err != nil {
		kindDims := append([]types.Dimension{
			{Name: aws.String("Kind"), Value: aws.String(generation.KindOf(obs.Err).String())},
		}, dimensions...)
		data = append(data, datum("GenerationErrors", 1, types.StandardUnitCount, kindDims))
	}

	m.send(data...)
}

// Flush waits for metrics that are still being sent.
func (m *Client) Flush() {
	if m == nil {
		return
	}
	m.inflight.Wait()
}

// send puts data in the background so request handling never waits on CloudWatch.
func (m *Client) send(data ...types.MetricDatum) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeoutSeconds*time.Second)
		defer cancel()

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(namespace),
			MetricData: data,
		})
		if err != nil {
			logger.Warn("Failed to put CloudWatch metrics", logger.Fields{"error": err.Error(), "count": len(data)})
		}
	}()
}

func datum(name string, value float64, unit types.StandardUnit, dimensions []types.Dimension) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dimensions,
	}
}
