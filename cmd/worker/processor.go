package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/idempotency"
	"github.com/imrishuroy/watch-storefront/internal/notify"
)

// errInFlight means another delivery of the same notification holds the key.
var errInFlight = errors.New("notification delivery already in progress")

// Processor delivers queued order notifications by email, at most once per
// order.
type Processor struct {
	idem    *idempotency.Store
	mailer  notify.Mailer
	metrics *aws.Metrics
	logger  *zap.Logger
}

// NewProcessor creates a worker processor.
func NewProcessor(idem *idempotency.Store, mailer notify.Mailer, metrics *aws.Metrics, logger *zap.Logger) *Processor {
	return &Processor{idem: idem, mailer: mailer, metrics: metrics, logger: logger}
}

// Handle processes an SQS batch. Records that fail are reported back so only
// they are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Warn("notification not delivered",
				zap.String("message_id", rec.MessageId),
				zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg notify.Message
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	log := p.logger.With(
		zap.String("order_id", msg.OrderID),
		zap.String("public_id", msg.PublicID),
		zap.String("kind", string(msg.Kind)))

	key := idempotency.NotifyKey(msg.OrderID)
	created, err := p.idem.CreateIfNotExists(ctx, key)
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	if !created {
		existing, err := p.idem.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
		if existing != nil && existing.Status == idempotency.StatusDone {
			log.Info("notification already delivered")
			return nil
		}
		return errInFlight
	}

	email, err := notify.Render(msg)
	if err == nil {
		err = p.mailer.Send(ctx, email)
	}
	if err != nil {
		if markErr := p.idem.MarkFailed(ctx, key, err.Error()); markErr != nil {
			log.Error("mark notification failed", zap.Error(markErr))
		}
		p.metrics.Count(ctx, aws.MetricNotificationsFailed, 1, nil)
		return fmt.Errorf("deliver notification: %w", err)
	}

	if err := p.idem.MarkDone(ctx, key, msg.OrderID); err != nil {
		// The email went out; a redelivery would send it twice, so do not fail the record.
		log.Error("mark notification done failed", zap.Error(err))
	}
	p.metrics.Count(ctx, aws.MetricNotificationsSent, 1, map[string]string{"kind": string(msg.Kind)})
	log.Info("notification sent", zap.String("to", email.To))
	return nil
}
