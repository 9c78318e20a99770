package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsClient wraps AWS CloudWatch Metrics operations
type MetricsClient struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
}

// NewMetricsClient creates a CloudWatch Metrics client. A disabled client
// accepts every call and sends nothing.
func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "ECommerce"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
	}
}

// PutMetric sends a single metric data point to CloudWatch
func (m *MetricsClient) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if m == nil || !m.enabled {
		return nil
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: sdkaws.String(metricName),
				Value:      sdkaws.Float64(value),
				Unit:       unit,
				Timestamp:  sdkaws.Time(time.Now()),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric: %w", err)
	}
	return nil
}

// RecordCount increments a counter metric
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

// RecordValue records a plain count value, e.g. how many items one merge failed on.
func (m *MetricsClient) RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, value, types.StandardUnitCount, dimensions)
}

// RecordLatency records a latency/duration metric in milliseconds
func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// IsEnabled returns whether CloudWatch metrics are enabled
func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

const (
	// HTTP metrics
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	// Cart metrics
	MetricCartMerges            = "CartMerges"
	MetricCartMergeItemFailures = "CartMergeItemFailures"
	MetricCartMergeLatency      = "CartMergeLatency"
)
