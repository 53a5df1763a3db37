package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubFaultPublisher writes fault records to the shared fault topic.
type PubSubFaultPublisher struct {
	publisher topicPublisher
}

func NewPubSubFaultPublisher(publisher *pubsub.Publisher) (*PubSubFaultPublisher, error) {
	if publisher == nil {
		return nil, errors.New("fault topic publisher required")
	}
	return &PubSubFaultPublisher{publisher: publisher}, nil
}

func (p *PubSubFaultPublisher) PublishFault(ctx context.Context, fault payloads.FaultEvent) error {
	body, err := json.Marshal(fault)
	if err != nil {
		return fmt.Errorf("marshal fault: %w", err)
	}
	res := p.publisher.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":   fault.EventID.String(),
			"event_type": fault.EventType,
			"consumer":   fault.Consumer,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish fault: %w", err)
	}
	return nil
}
