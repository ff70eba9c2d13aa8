package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/angelmondragon/orderdesk/pkg/outbox/registry"
)

const defaultPublishTimeout = 15 * time.Second

// verdict is what the batch does with an outbox row after one attempt.
type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

type delivery struct {
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	topic   string
	eventID string
	err     error
}

// deliver resolves and publishes one row without touching the database.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return delivery{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonUnroutable, err: err}
	}

	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}
	err = s.publish(ctx, event, resolved)
	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		d.verdict = verdictPublished
	case errors.As(err, &permanent):
		d.verdict, d.reason, d.err = verdictDeadLetter, enums.OutboxDLQReasonNonRetryable, err
	case event.LastAttempt(s.maxAttempts):
		d.verdict, d.reason = verdictDeadLetter, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.verdict, d.err = verdictRetry, err
	}
	return d
}

// settle records the verdict on the row inside the batch transaction.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, d delivery) error {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	logCtx := s.logg.WithFields(ctx, fields)

	switch d.verdict {
	case verdictPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncDelivery(string(event.EventType), metrics.DeliveryPublished)
		s.logg.Info(logCtx, "outbox event published")

	case verdictRetry:
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"attempt_count": event.AttemptCount + 1,
			"error":         d.err.Error(),
		})
		s.logg.Warn(logCtx, "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.IncDelivery(string(event.EventType), metrics.DeliveryRetried)

	case verdictDeadLetter:
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"error_reason": d.reason,
			"error":        d.err.Error(),
			"needs_fix":    d.reason.Terminal(),
		})
		s.logg.Warn(logCtx, "outbox event will not be retried")
		message := d.err.Error()
		if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &message,
			AttemptCount:  event.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.IncDelivery(string(event.EventType), metrics.DeliveryDeadLettered)
	}
	return nil
}

// publish sends the stored envelope as-is. Attributes let subscribers filter
// without decoding the body.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
	if resolved.Descriptor.AggregateType == enums.AggregateOrder {
		attrs["order_id"] = event.AggregateID.String()
	}

	sendCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(sendCtx, &gcppubsub.Message{Data: event.Payload, Attributes: attrs})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(sendCtx)
	return err
}
