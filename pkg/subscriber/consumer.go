// Package subscriber runs the shared receive loop used by every event
// consumer: decode, dedupe, handle, then retry or route to the fault topic.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/registry"
)

const (
	defaultMaxAttempts = 5
	defaultAttemptTTL  = 24 * time.Hour
)

// Handler applies one decoded event. Returning a registry.NonRetryableError
// routes the message to the fault topic without further retries.
type Handler interface {
	Handle(ctx context.Context, envelope outbox.PayloadEnvelope, event payloads.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope outbox.PayloadEnvelope, event payloads.Event) error

func (f HandlerFunc) Handle(ctx context.Context, envelope outbox.PayloadEnvelope, event payloads.Event) error {
	return f(ctx, envelope, event)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type attemptCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	AttemptKey(consumer, eventID string) string
	Del(ctx context.Context, keys ...string) error
}

// FaultPublisher sends exhausted messages to the fault channel.
type FaultPublisher interface {
	PublishFault(ctx context.Context, fault payloads.FaultEvent) error
}

// Message is the transport-neutral view of a received Pub/Sub message.
type Message struct {
	ID              string
	Data            []byte
	Attributes      map[string]string
	DeliveryAttempt *int
}

type Params struct {
	Name         string
	Subscription string
	Receiver     receiver
	Decoder      *registry.DecoderRegistry
	Handler      Handler
	Idempotency  idempotencyGuard
	Attempts     attemptCounter
	Faults       FaultPublisher
	MaxAttempts  int
	AttemptTTL   time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.ConsumerMetrics
}

// Consumer drives one subscription.
type Consumer struct {
	name         string
	subscription string
	receiver     receiver
	decoder      *registry.DecoderRegistry
	handler      Handler
	idempotency  idempotencyGuard
	attempts     attemptCounter
	faults       FaultPublisher
	maxAttempts  int
	attemptTTL   time.Duration
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
	now          func() time.Time
}

func NewConsumer(params Params) (*Consumer, error) {
	if params.Name == "" {
		return nil, errors.New("consumer name required")
	}
	if params.Receiver == nil {
		return nil, fmt.Errorf("%s: subscription required", params.Name)
	}
	if params.Decoder == nil {
		return nil, fmt.Errorf("%s: decoder registry required", params.Name)
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("%s: handler required", params.Name)
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("%s: idempotency manager required", params.Name)
	}
	if params.Faults == nil {
		return nil, fmt.Errorf("%s: fault publisher required", params.Name)
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("%s: logger required", params.Name)
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	attemptTTL := params.AttemptTTL
	if attemptTTL <= 0 {
		attemptTTL = defaultAttemptTTL
	}
	return &Consumer{
		name:         params.Name,
		subscription: params.Subscription,
		receiver:     params.Receiver,
		decoder:      params.Decoder,
		handler:      params.Handler,
		idempotency:  params.Idempotency,
		attempts:     params.Attempts,
		faults:       params.Faults,
		maxAttempts:  maxAttempts,
		attemptTTL:   attemptTTL,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

func (c *Consumer) Name() string { return c.name }

// Run blocks receiving messages until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	ctx = c.logg.WithConsumer(ctx, c.name, c.subscription)
	c.logg.Info(ctx, "consumer started")
	return c.receiver.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		in := Message{
			ID:              msg.ID,
			Data:            msg.Data,
			Attributes:      msg.Attributes,
			DeliveryAttempt: msg.DeliveryAttempt,
		}
		if c.Process(ctx, in) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one message and reports whether it should be acked.
func (c *Consumer) Process(ctx context.Context, msg Message) bool {
	started := c.now()
	outcome, ack := c.process(ctx, msg)
	c.metrics.Observe(c.name, outcome, c.now().Sub(started))
	return ack
}

func (c *Consumer) process(ctx context.Context, msg Message) (string, bool) {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":   msg.ID,
		"event_type":   rawType,
		"aggregate_id": msg.Attributes["aggregate_id"],
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Warn(logCtx, "skipping unsupported event type")
		return metrics.OutcomeSkipped, true
	}

	envelope, event, err := c.decoder.DecodeMessage(eventType, msg.Data)
	if err != nil {
		return c.fault(logCtx, msg, uuid.Nil, eventType, c.deliveryAttempts(msg), fmt.Errorf("decode: %w", err))
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return c.fault(logCtx, msg, uuid.Nil, eventType, c.deliveryAttempts(msg), fmt.Errorf("invalid event id: %w", err))
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())
	logCtx = c.logg.WithAuctionID(logCtx, event.AuctionKey().String())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, c.name, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return metrics.OutcomeRetried, false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return metrics.OutcomeDuplicate, true
	}

	handleErr := c.handler.Handle(logCtx, envelope, event)
	if handleErr == nil {
		c.clearAttempts(logCtx, eventID)
		return metrics.OutcomeHandled, true
	}

	if err := c.idempotency.Delete(ctx, c.name, eventID); err != nil {
		c.logg.Error(logCtx, "failed to release idempotency key", err)
	}

	var nonRetry registry.NonRetryableError
	if errors.As(handleErr, &nonRetry) {
		return c.fault(logCtx, msg, eventID, eventType, c.deliveryAttempts(msg), handleErr)
	}

	attempts, err := c.countAttempt(logCtx, msg, eventID)
	if err != nil {
		c.logg.Error(logCtx, "attempt counter failed", err)
		return metrics.OutcomeRetried, false
	}
	if attempts >= c.maxAttempts {
		return c.fault(logCtx, msg, eventID, eventType, attempts, handleErr)
	}

	c.logg.Error(c.logg.WithField(logCtx, "attempt", attempts), "event handling failed, will retry", handleErr)
	return metrics.OutcomeRetried, false
}

func (c *Consumer) fault(ctx context.Context, msg Message, eventID uuid.UUID, eventType enums.OutboxEventType, attempts int, cause error) (string, bool) {
	if eventID == uuid.Nil {
		if parsed, err := uuid.Parse(msg.Attributes["event_id"]); err == nil {
			eventID = parsed
		}
	}
	fault := payloads.FaultEvent{
		EventID:      eventID,
		EventType:    string(eventType),
		Consumer:     c.name,
		Subscription: c.subscription,
		Attempts:     attempts,
		Reason:       cause.Error(),
		Payload:      msg.Data,
		FailedAt:     c.now().UTC(),
	}
	if err := c.faults.PublishFault(ctx, fault); err != nil {
		c.logg.Error(ctx, "fault publish failed, message will be redelivered", err)
		return metrics.OutcomeRetried, false
	}
	c.clearAttempts(ctx, eventID)
	c.logg.Error(c.logg.WithField(ctx, "attempts", attempts), "event routed to fault topic", cause)
	return metrics.OutcomeFaulted, true
}

// deliveryAttempts is the transport's count when the subscription has a
// dead-letter policy; otherwise the current count is unknown and reported as 1.
func (c *Consumer) deliveryAttempts(msg Message) int {
	if msg.DeliveryAttempt != nil && *msg.DeliveryAttempt > 0 {
		return *msg.DeliveryAttempt
	}
	return 1
}

func (c *Consumer) countAttempt(ctx context.Context, msg Message, eventID uuid.UUID) (int, error) {
	if msg.DeliveryAttempt != nil && *msg.DeliveryAttempt > 0 {
		return *msg.DeliveryAttempt, nil
	}
	if c.attempts == nil {
		return 1, nil
	}
	count, err := c.attempts.IncrWithTTL(ctx, c.attempts.AttemptKey(c.name, eventID.String()), c.attemptTTL)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (c *Consumer) clearAttempts(ctx context.Context, eventID uuid.UUID) {
	if c.attempts == nil || eventID == uuid.Nil {
		return
	}
	if err := c.attempts.Del(ctx, c.attempts.AttemptKey(c.name, eventID.String())); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "failed to clear attempt counter")
	}
}
