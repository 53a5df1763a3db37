package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

// CurrentVersion is the schema version stamped on every emitted envelope.
const CurrentVersion = 1

// DomainEvent is a change waiting to be written to the outbox. Zero Version
// and OccurredAt are filled in on Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// FromPayload builds the DomainEvent for a typed payload. Every auction event
// is keyed by its auction so Pub/Sub ordering follows the auction.
func FromPayload(event payloads.Event, actor *ActorRef) DomainEvent {
	return DomainEvent{
		EventType:     event.EventType(),
		AggregateType: enums.AggregateAuction,
		AggregateID:   event.AuctionKey(),
		Actor:         actor,
		Data:          event,
		Version:       CurrentVersion,
	}
}

// Emitter is the surface domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit appends the event to the outbox inside the caller's transaction, so
// the row commits or rolls back with the domain write.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("emit outside a transaction")
	}
	row, eventID, err := s.encode(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":   eventID,
			"event_type": row.EventType,
			"auction_id": row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// encode wraps the event data in a versioned envelope and returns the row to
// insert along with the envelope's event id.
func (s *Service) encode(event DomainEvent) (models.OutboxEvent, string, error) {
	switch {
	case !event.EventType.IsValid():
		return models.OutboxEvent{}, "", fmt.Errorf("unknown event type %q", event.EventType)
	case event.AggregateID == uuid.Nil:
		return models.OutboxEvent{}, "", errors.New("event has no aggregate id")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}
	version := event.Version
	if version == 0 {
		version = CurrentVersion
	}

	eventID := uuid.NewString()
	body, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    eventID,
		OccurredAt: occurred,
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}

	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
		CreatedAt:     occurred,
	}, eventID, nil
}
