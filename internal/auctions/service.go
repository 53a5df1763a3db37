package auctions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	List(ctx context.Context, since *time.Time) ([]AuctionDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*AuctionDTO, error)
	Create(ctx context.Context, seller string, input CreateAuctionInput) (*AuctionDTO, error)
	Update(ctx context.Context, caller string, id uuid.UUID, input UpdateAuctionInput) (*AuctionDTO, error)
	Delete(ctx context.Context, caller string, id uuid.UUID) error
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("auction repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox, logg: params.Logger, now: now}, nil
}

func (s *service) List(ctx context.Context, since *time.Time) ([]AuctionDTO, error) {
	rows, err := s.repo.List(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list auctions")
	}
	out := make([]AuctionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAuctionDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AuctionDTO, error) {
	auction, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	dto := toAuctionDTO(*auction)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, seller string, input CreateAuctionInput) (*AuctionDTO, error) {
	seller = strings.TrimSpace(seller)
	if seller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required")
	}
	now := s.now().UTC()
	if !input.AuctionEnd.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auctionEnd must be in the future")
	}
	if input.ReservePrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservePrice cannot be negative")
	}

	auction := models.Auction{
		ID:           uuid.New(),
		Make:         strings.TrimSpace(input.Make),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		Color:        strings.TrimSpace(input.Color),
		Mileage:      input.Mileage,
		ImageURL:     strings.TrimSpace(input.ImageURL),
		ReservePrice: input.ReservePrice,
		Seller:       seller,
		Status:       enums.AuctionStatusLive,
		AuctionEnd:   input.AuctionEnd.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &auction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create auction")
		}
		event := payloads.AuctionCreatedEvent{
			ID:           auction.ID,
			Seller:       auction.Seller,
			ReservePrice: auction.ReservePrice,
			AuctionEnd:   auction.AuctionEnd,
			Make:         auction.Make,
			Model:        auction.Model,
			Year:         auction.Year,
			Color:        auction.Color,
			Mileage:      auction.Mileage,
			ImageURL:     auction.ImageURL,
			Status:       auction.Status,
			CreatedAt:    auction.CreatedAt,
			UpdatedAt:    auction.UpdatedAt,
		}
		return s.emit(ctx, tx, event, seller)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithAuctionID(ctx, auction.ID.String()), "auction created")
	dto := toAuctionDTO(auction)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, caller string, id uuid.UUID, input UpdateAuctionInput) (*AuctionDTO, error) {
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Auction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		auction, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if auction.Seller != caller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can update this auction")
		}

		event := payloads.AuctionUpdatedEvent{
			ID:        id,
			Make:      trimmed(input.Make),
			Model:     trimmed(input.Model),
			Year:      input.Year,
			Mileage:   input.Mileage,
			Color:     trimmed(input.Color),
			ImageURL:  trimmed(input.ImageURL),
			UpdatedAt: s.now().UTC(),
		}
		if err := s.repo.Patch(ctx, tx, id, event.Changes(), event.UpdatedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update auction")
		}
		if err := s.emit(ctx, tx, event, caller); err != nil {
			return err
		}
		updated, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithAuctionID(ctx, id.String()), "auction updated")
	dto := toAuctionDTO(*updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, caller string, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		auction, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if auction.Seller != caller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can delete this auction")
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete auction")
		}
		return s.emit(ctx, tx, payloads.AuctionDeletedEvent{ID: id}, caller)
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithAuctionID(ctx, id.String()), "auction deleted")
	return nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Auction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	auction, err := s.repo.FindByID(ctx, tx, id)
	if isNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction")
	}
	return auction, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, event payloads.Event, actor string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.FromPayload(event, &outbox.ActorRef{Subject: actor})); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("emit %s", event.EventType()))
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
