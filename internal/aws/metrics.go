package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metric names emitted by the storefront.
const (
	MetricOrdersPlaced         = "OrdersPlaced"
	MetricServiceBookings      = "ServiceBookings"
	MetricStockFloored         = "StockFloored"
	MetricStockUpdateFailures  = "StockUpdateFailures"
	MetricReconcileCorrections = "ReconcileCorrections"
	MetricNotificationsSent    = "NotificationsSent"
	MetricNotificationsFailed  = "NotificationsFailed"
)

// Metrics publishes counters to CloudWatch. A nil *Metrics, or one without a
// client, is a no-op so callers never have to guard.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publisher for namespace.
func NewMetrics(client CloudWatchAPI, namespace string, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Count records value occurrences of name. Failures are logged and dropped.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dims map[string]string) {
	if m == nil || m.client == nil || value == 0 {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      &value,
		Timestamp:  ptrTime(m.nowFunc()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  awsString(k),
			Value: awsString(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  awsString(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		m.logger.Warn("put metric failed", zap.String("metric", name), zap.Error(err))
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
