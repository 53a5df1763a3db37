// Package faults persists messages that other consumers gave up on.
package faults

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

const ConsumerName = "event-faults"

type store interface {
	Insert(ctx context.Context, fault *models.EventFault) (bool, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer logs and stores every fault. It always acks: a fault that cannot
// be stored is still in the error log and is not retried.
type Consumer struct {
	store        store
	subscription receiver
	name         string
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
	now          func() time.Time
}

func NewConsumer(st store, subscription receiver, subscriptionName string, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if st == nil {
		return nil, fmt.Errorf("fault store required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("fault subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		store:        st,
		subscription: subscription,
		name:         subscriptionName,
		logg:         logg,
		metrics:      m,
		now:          time.Now,
	}, nil
}

func (c *Consumer) Name() string { return ConsumerName }

func (c *Consumer) Run(ctx context.Context) error {
	ctx = c.logg.WithConsumer(ctx, ConsumerName, c.name)
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.Process(ctx, msg.ID, msg.Data)
		msg.Ack()
	})
}

// Process records one fault message.
func (c *Consumer) Process(ctx context.Context, messageID string, data []byte) {
	start := c.now()
	outcome := metrics.OutcomeHandled
	defer func() { c.metrics.Observe(ConsumerName, outcome, c.now().Sub(start)) }()

	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	var fault payloads.FaultEvent
	if err := json.Unmarshal(data, &fault); err != nil {
		outcome = metrics.OutcomeSkipped
		c.logg.Error(logCtx, "undecodable fault message dropped", err)
		return
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":        fault.EventID.String(),
		"event_type":      fault.EventType,
		"failed_consumer": fault.Consumer,
		"attempts":        fault.Attempts,
	})
	c.logg.Error(logCtx, "consumer fault received", fmt.Errorf("%s", fault.Reason))

	failedAt := fault.FailedAt
	if failedAt.IsZero() {
		failedAt = c.now()
	}
	inserted, err := c.store.Insert(ctx, &models.EventFault{
		ID:           uuid.New(),
		EventID:      fault.EventID,
		EventType:    fault.EventType,
		Consumer:     fault.Consumer,
		Subscription: fault.Subscription,
		Attempts:     fault.Attempts,
		Reason:       fault.Reason,
		Payload:      fault.Payload,
		FailedAt:     failedAt,
		CreatedAt:    c.now(),
	})
	if err != nil {
		outcome = metrics.OutcomeFaulted
		c.logg.Error(logCtx, "failed to persist fault", err)
		return
	}
	if !inserted {
		outcome = metrics.OutcomeDuplicate
	}
}
