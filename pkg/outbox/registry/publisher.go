package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type to its topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() payloads.Event
}

// ResolvedEvent is an outbox row decoded and checked against its descriptor.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    payloads.Event
}

// NonRetryableError marks a row that can never publish; the dispatcher
// dead-letters it on the first attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry is the publisher-side routing table.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes auction lifecycle events to the auction topic, and
// bid outcomes plus finalization to the bid topic. Every event is keyed on the
// auction aggregate so one ordering key covers both topics.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.AuctionEventsTopic == "":
		return nil, errors.New("auction events topic is required")
	case cfg.BidEventsTopic == "":
		return nil, errors.New("bid events topic is required")
	}

	routes := map[string]map[enums.OutboxEventType]func() payloads.Event{
		cfg.AuctionEventsTopic: {
			enums.EventAuctionCreated: func() payloads.Event { return &payloads.AuctionCreatedEvent{} },
			enums.EventAuctionUpdated: func() payloads.Event { return &payloads.AuctionUpdatedEvent{} },
			enums.EventAuctionDeleted: func() payloads.Event { return &payloads.AuctionDeletedEvent{} },
		},
		cfg.BidEventsTopic: {
			enums.EventBidPlaced:       func() payloads.Event { return &payloads.BidPlacedEvent{} },
			enums.EventAuctionFinished: func() payloads.Event { return &payloads.AuctionFinishedEvent{} },
		},
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for topic, events := range routes {
		for eventType, factory := range events {
			reg.entries[eventType] = EventDescriptor{
				EventType:      eventType,
				AggregateType:  enums.AggregateAuction,
				Topic:          topic,
				PayloadFactory: factory,
			}
		}
	}
	return reg, nil
}

// Topics lists the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, 2)
	for _, desc := range r.entries {
		set[desc.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure is non-retryable since the row itself will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, reject("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, reject("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, reject("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, reject("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, reject("payload missing for %s", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, reject("decode %s payload: %w", event.EventType, err)
	}
	if got := payload.AuctionKey(); got != event.AggregateID {
		return nil, reject("payload auction %s does not match aggregate %s", got, event.AggregateID)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
