package notify

import (
	"context"

	"github.com/imrishuroy/watch-storefront/internal/aws"
)

// Notifier hands a message to the delivery pipeline.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// QueueNotifier publishes messages to the notification SQS queue.
type QueueNotifier struct {
	publisher *aws.Publisher
}

func NewQueueNotifier(publisher *aws.Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (n *QueueNotifier) Notify(ctx context.Context, m Message) error {
	_, err := n.publisher.PublishJSON(ctx, m, map[string]string{
		"kind":     string(m.Kind),
		"order_id": m.OrderID,
	})
	return err
}
