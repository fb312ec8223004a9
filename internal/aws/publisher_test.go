package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, in)
	return &sqs.SendMessageOutput{MessageId: awsString("msg-1")}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestPublishJSON(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/queue")

	id, err := p.PublishJSON(context.Background(), map[string]string{"order_id": "o1"}, map[string]string{
		"order_id": "o1",
		"empty":    "",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, mock.inputs, 1)

	in := mock.inputs[0]
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(*in.MessageBody), &body))
	assert.Equal(t, "o1", body["order_id"])
	assert.Contains(t, in.MessageAttributes, "order_id")
	assert.NotContains(t, in.MessageAttributes, "empty")
}

func TestPublishJSON_NoQueue(t *testing.T) {
	p := NewPublisher(&mockSQS{}, "")
	_, err := p.PublishJSON(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoQueue)
}

func TestPublishJSON_SendError(t *testing.T) {
	p := NewPublisher(&mockSQS{err: errors.New("boom")}, "q")
	_, err := p.PublishJSON(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestMetricsCount(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewMetrics(cw, "Storefront", zap.NewNop())

	m.Count(context.Background(), MetricOrdersPlaced, 1, map[string]string{"kind": "purchase"})
	m.Count(context.Background(), MetricStockFloored, 0, nil)

	require.Len(t, cw.inputs, 1)
	assert.Equal(t, "Storefront", *cw.inputs[0].Namespace)
	assert.Equal(t, MetricOrdersPlaced, *cw.inputs[0].MetricData[0].MetricName)
	assert.Len(t, cw.inputs[0].MetricData[0].Dimensions, 1)

	var nilMetrics *Metrics
	nilMetrics.Count(context.Background(), MetricOrdersPlaced, 1, nil)
}

func TestIsConditionFailed(t *testing.T) {
	assert.True(t, IsConditionFailed(&types.ConditionalCheckFailedException{}))
	assert.True(t, IsConditionFailed(errors.Join(errors.New("wrap"), &types.ConditionalCheckFailedException{})))
	assert.False(t, IsConditionFailed(errors.New("other")))
	assert.False(t, IsConditionFailed(nil))
	assert.True(t, IsTransactionCanceled(&types.TransactionCanceledException{}))
}
