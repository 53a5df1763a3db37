package bidding

import (
	"context"
	"fmt"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

// MirrorConsumerName keys idempotency and attempt counters for the mirror.
const MirrorConsumerName = "bidding-mirror"

// MirrorHandler keeps auction_mirrors in step with the auction-events topic.
// Finishing is recorded by the Finalizer in the same transaction as the bid
// updates, so AuctionFinished never reaches this handler. Every write is safe
// to repeat.
type MirrorHandler struct {
	repo *Repository
	logg *logger.Logger
}

func NewMirrorHandler(repo *Repository, logg *logger.Logger) (*MirrorHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &MirrorHandler{repo: repo, logg: logg}, nil
}

func (h *MirrorHandler) Handle(ctx context.Context, _ outbox.PayloadEnvelope, event payloads.Event) error {
	switch e := event.(type) {
	case payloads.AuctionCreatedEvent:
		created, err := h.repo.InsertMirrorIfAbsent(ctx, nil, &models.AuctionMirror{
			AuctionID:       e.ID,
			Seller:          e.Seller,
			ReservePrice:    e.ReservePrice,
			AuctionEnd:      e.AuctionEnd.UTC(),
			SourceUpdatedAt: e.UpdatedAt.UTC(),
		})
		if err != nil {
			return fmt.Errorf("insert mirror: %w", err)
		}
		if !created {
			h.logg.Info(ctx, "mirror already present")
		}
		return nil
	case payloads.AuctionUpdatedEvent:
		if _, err := h.repo.TouchMirror(ctx, nil, e.ID, e.UpdatedAt); err != nil {
			return fmt.Errorf("patch mirror: %w", err)
		}
		return nil
	case payloads.AuctionDeletedEvent:
		if err := h.repo.DeleteMirror(ctx, nil, e.ID); err != nil {
			return fmt.Errorf("delete mirror: %w", err)
		}
		return nil
	default:
		h.logg.Info(ctx, "event not handled by mirror")
		return nil
	}
}
