// Package registry routes outbox rows to Pub/Sub topics and decodes their
// typed payloads.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
	"github.com/angelmondragon/orderdesk/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload
// schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row with its decoded payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanentf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes order lifecycle events to the orders topic and
// invoice events to the invoices topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, errors.New("orders topic is required")
	case cfg.InvoicesTopic == "":
		return nil, errors.New("invoices topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.OrderQuotedEvent](enums.EventOrderQuoted, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.InvoiceMaterializedEvent](enums.EventInvoiceMaterialized, enums.AggregateInvoice, cfg.InvoicesTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct destination topics in sorted order.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.entries))
	for _, desc := range r.entries {
		topics = append(topics, desc.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve validates the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanentf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanentf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanentf("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if errors.Is(err, outbox.ErrEmptyData) {
		return nil, permanentf("payload missing for %s", event.EventType)
	}
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, permanentf("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
