package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsNamespace is the CloudWatch namespace of all published metrics.
const MetricsNamespace = "OmniKassa/OrderFlow"

// MetricsPublisher writes reconciliation counters to CloudWatch.
type MetricsPublisher struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsPublisher returns a publisher writing to the OmniKassa/OrderFlow namespace.
func NewMetricsPublisher(cw CloudWatchAPI) *MetricsPublisher {
	return &MetricsPublisher{CloudWatch: cw, Namespace: MetricsNamespace, nowFunc: time.Now}
}

// PutCounts publishes one Count datum per entry.
func (m *MetricsPublisher) PutCounts(ctx context.Context, counts map[string]float64) error {
	if len(counts) == 0 {
		return nil
	}
	now := m.nowFunc()
	data := make([]cwtypes.MetricDatum, 0, len(counts))
	for name, v := range counts {
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(v),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  sdkaws.Time(now),
		})
	}
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
