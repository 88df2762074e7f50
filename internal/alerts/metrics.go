package alerts

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"stockwatch/internal/types"
)

// Metric and dimension names for the alert pipeline.
const (
	MetricAlertGenerated  = "AlertGenerated"
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryFailure = "DeliveryFailure"

	DimType    = "Type"
	DimOutcome = "Outcome"
	DimChannel = "Channel"
	DimResult  = "Result"
)

// Metrics records pipeline outcomes for observability. Implementations must
// never fail the pipeline: emission errors are logged and swallowed.
type Metrics interface {
	// RecordGenerate counts one GenerateAlert outcome by alert type.
	RecordGenerate(ctx context.Context, outcome types.GenerateOutcome, alertType types.AlertType)
	// RecordDelivery counts per-channel delivery results for one sent alert.
	RecordDelivery(ctx context.Context, alertType types.AlertType, succeeded, failed []types.ChannelType)
	// RecordDeliveryFailure counts one alert that ended a processing pass failed.
	RecordDeliveryFailure(ctx context.Context)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchMetrics implements Metrics.
var _ Metrics = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics publishes pipeline metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - AlertGenerated: Dims {Type, Outcome} -- on every GenerateAlert result
//   - DeliveryAttempt: Dims {Channel, Result} -- per channel on every sent alert
//   - DeliveryFailure: No dims -- per alert that finished a pass failed
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a metrics recorder publishing to the given
// CloudWatch namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) RecordGenerate(ctx context.Context, outcome types.GenerateOutcome, alertType types.AlertType) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricAlertGenerated),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimType), Value: aws.String(string(alertType))},
			{Name: aws.String(DimOutcome), Value: aws.String(string(outcome))},
		},
	})
}

func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, alertType types.AlertType, succeeded, failed []types.ChannelType) {
	data := make([]cwtypes.MetricDatum, 0, len(succeeded)+len(failed))
	for _, ch := range succeeded {
		data = append(data, deliveryDatum(ch, "success"))
	}
	for _, ch := range failed {
		data = append(data, deliveryDatum(ch, "failure"))
	}
	if len(data) == 0 {
		return
	}
	m.put(ctx, data...)
}

func (m *CloudWatchMetrics) RecordDeliveryFailure(ctx context.Context) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish pipeline metrics",
			"error", err.Error(),
			"datum_count", len(data),
		)
	}
}

func deliveryDatum(channel types.ChannelType, result string) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimChannel), Value: aws.String(string(channel))},
			{Name: aws.String(DimResult), Value: aws.String(result)},
		},
	}
}

// NoopMetrics discards all metrics. Used in tests and the job-runner CLI.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

func (NoopMetrics) RecordGenerate(context.Context, types.GenerateOutcome, types.AlertType) {}
func (NoopMetrics) RecordDelivery(context.Context, types.AlertType, []types.ChannelType, []types.ChannelType) {
}
func (NoopMetrics) RecordDeliveryFailure(context.Context) {}
