package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

const (
	AuctionConsumerName = "search-auction-projection"
	BidConsumerName     = "search-bid-projection"
)

// ProjectionHandler folds every auction and bid event into search_items.
// Each write is guarded so replays and reordering converge.
type ProjectionHandler struct {
	repo *Repository
	logg *logger.Logger
}

// ErrNotIndexed is returned for a bid or finish event whose auction has not
// been indexed yet. Bid events travel on their own topic, so they can arrive
// before AuctionCreated; the error is retryable and the event is reapplied on
// redelivery.
var ErrNotIndexed = errors.New("auction not indexed yet")

func NewProjectionHandler(repo *Repository, logg *logger.Logger) (*ProjectionHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("search repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ProjectionHandler{repo: repo, logg: logg}, nil
}

func (h *ProjectionHandler) Handle(ctx context.Context, _ outbox.PayloadEnvelope, event payloads.Event) error {
	var err error
	switch e := event.(type) {
	case payloads.AuctionCreatedEvent:
		status := e.Status
		if status == "" {
			status = enums.AuctionStatusLive
		}
		_, err = h.repo.InsertIfAbsent(ctx, &models.SearchItem{
			ID:              e.ID,
			Make:            e.Make,
			Model:           e.Model,
			Year:            e.Year,
			Color:           e.Color,
			Mileage:         e.Mileage,
			ImageURL:        e.ImageURL,
			ReservePrice:    e.ReservePrice,
			Seller:          e.Seller,
			Status:          status,
			AuctionEnd:      e.AuctionEnd.UTC(),
			CreatedAt:       e.CreatedAt.UTC(),
			UpdatedAt:       e.UpdatedAt.UTC(),
			SourceUpdatedAt: e.UpdatedAt.UTC(),
		})
	case payloads.AuctionUpdatedEvent:
		var applied bool
		applied, err = h.repo.Patch(ctx, e.ID, e.Changes(), e.UpdatedAt)
		if err == nil && !applied {
			h.logg.Info(ctx, "stale or unknown auction update ignored")
		}
	case payloads.AuctionDeletedEvent:
		err = h.repo.Delete(ctx, e.ID)
	case payloads.BidPlacedEvent:
		if e.Status.IsLeading() {
			var applied bool
			applied, err = h.repo.RaiseHighBid(ctx, e.AuctionID, e.Amount)
			if err == nil && !applied {
				err = h.requireIndexed(ctx, e.AuctionID)
			}
		}
	case payloads.AuctionFinishedEvent:
		var winner *string
		var amount *int64
		if e.ItemSold {
			winner, amount = e.Winner, e.Amount
		}
		var applied bool
		applied, err = h.repo.Finish(ctx, e.AuctionID, enums.FinishedStatus(e.ItemSold), winner, amount)
		if err == nil && !applied {
			err = h.requireIndexed(ctx, e.AuctionID)
		}
	default:
		h.logg.Info(ctx, "event not handled by search projection")
	}
	if err != nil {
		return fmt.Errorf("%s projection: %w", event.EventType(), err)
	}
	return nil
}

// requireIndexed tells a guarded no-op apart from a missing row.
func (h *ProjectionHandler) requireIndexed(ctx context.Context, id uuid.UUID) error {
	ok, err := h.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotIndexed, id)
	}
	return nil
}
