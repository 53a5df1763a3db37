package auctions

import (
	"context"
	"fmt"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

// ProjectionConsumerName keys idempotency for the auction worker.
const ProjectionConsumerName = "auction-bid-projection"

// ProjectionHandler applies bid outcomes to the canonical auction records.
type ProjectionHandler struct {
	repo *Repository
	logg *logger.Logger
}

func NewProjectionHandler(repo *Repository, logg *logger.Logger) (*ProjectionHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("auction repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ProjectionHandler{repo: repo, logg: logg}, nil
}

func (h *ProjectionHandler) Handle(ctx context.Context, _ outbox.PayloadEnvelope, event payloads.Event) error {
	switch e := event.(type) {
	case payloads.BidPlacedEvent:
		if !e.Status.IsLeading() {
			return nil
		}
		raised, err := h.repo.RaiseHighBid(ctx, e.AuctionID, e.Amount)
		if err != nil {
			return fmt.Errorf("raise high bid: %w", err)
		}
		if raised {
			h.logg.Info(h.logg.WithField(ctx, "amount", e.Amount), "current high bid raised")
		}
		return nil
	case payloads.AuctionFinishedEvent:
		status := enums.FinishedStatus(e.ItemSold)
		var winner *string
		var amount *int64
		if e.ItemSold {
			winner, amount = e.Winner, e.Amount
		}
		finished, err := h.repo.Finish(ctx, e.AuctionID, status, winner, amount)
		if err != nil {
			return fmt.Errorf("finish auction: %w", err)
		}
		if !finished {
			h.logg.Info(ctx, "auction already finished or missing")
		}
		return nil
	default:
		h.logg.Info(ctx, "event not handled by auction projection")
		return nil
	}
}
