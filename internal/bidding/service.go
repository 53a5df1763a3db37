package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/auctionrpc"
	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AuctionLookup resolves an auction from the auction service when the mirror
// has no row for it.
type AuctionLookup interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*auctionrpc.AuctionSnapshot, error)
}

type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*BidDTO, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidDTO, error)
}

type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Lookup  AuctionLookup
	Metrics *metrics.AuctionMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	tx      txRunner
	outbox  outbox.Emitter
	lookup  AuctionLookup
	metrics *metrics.AuctionMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Lookup == nil {
		return nil, fmt.Errorf("auction lookup required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		lookup:  params.Lookup,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// PlaceBid records exactly one bid row and changes at most one prior row.
// Rejected outcomes (too_low, accepted_below_reserve, finished) are returned as
// bids, not errors.
func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*BidDTO, error) {
	bidder := strings.TrimSpace(input.Bidder)
	if bidder == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bidder identity required")
	}
	if input.AuctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auctionId is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	if err := s.ensureMirror(ctx, input.AuctionID); err != nil {
		return nil, err
	}

	var placed models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		mirror, err := s.repo.LockMirror(ctx, tx, input.AuctionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction mirror")
		}
		if mirror == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		if mirror.Seller == bidder {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot bid on their own auction")
		}

		now := s.now().UTC()
		var leading *models.Bid
		if !mirror.Finished && now.Before(mirror.AuctionEnd) {
			leading, err = s.repo.LeadingBid(ctx, tx, mirror.AuctionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load leading bid")
			}
		}
		decision := Arbitrate(now, *mirror, leading, input.Amount)

		placed = models.Bid{
			ID:        uuid.New(),
			AuctionID: mirror.AuctionID,
			Bidder:    bidder,
			Amount:    input.Amount,
			BidTime:   now,
			Status:    decision.Status,
		}
		if err := s.repo.InsertBid(ctx, tx, &placed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert bid")
		}
		if decision.Demote != nil {
			if err := s.repo.DemoteBid(ctx, tx, *decision.Demote); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "demote previous leader")
			}
		}

		event := payloads.BidPlacedEvent{
			ID:        placed.ID,
			AuctionID: placed.AuctionID,
			Bidder:    placed.Bidder,
			BidTime:   placed.BidTime,
			Amount:    placed.Amount,
			Status:    placed.Status,
		}
		if err := s.outbox.Emit(ctx, tx, outbox.FromPayload(event, &outbox.ActorRef{Subject: bidder})); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit bid placed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBid(string(placed.Status))
	if s.logg != nil {
		logCtx := s.logg.WithAuctionID(ctx, placed.AuctionID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"bid_id":     placed.ID.String(),
			"bid_status": string(placed.Status),
			"amount":     placed.Amount,
		})
		s.logg.Info(logCtx, "bid placed")
	}

	dto := toBidDTO(placed)
	return &dto, nil
}

// ensureMirror falls back to the auction service on a mirror miss and keeps
// the result so the next bid does not repeat the call.
func (s *service) ensureMirror(ctx context.Context, auctionID uuid.UUID) error {
	mirror, err := s.repo.FindMirror(ctx, nil, auctionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction mirror")
	}
	if mirror != nil {
		return nil
	}

	snapshot, err := s.lookup.GetAuction(ctx, auctionID)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auction lookup unavailable")
		}
		return err
	}
	if snapshot == nil || snapshot.ID != auctionID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}

	if _, err := s.repo.InsertMirrorIfAbsent(ctx, nil, &models.AuctionMirror{
		AuctionID:    snapshot.ID,
		Seller:       snapshot.Seller,
		ReservePrice: snapshot.ReservePrice,
		AuctionEnd:   snapshot.AuctionEnd.UTC(),
		Finished:     snapshot.Finished,
		// zero so any AuctionUpdated for this auction still applies
		SourceUpdatedAt: time.Time{}.UTC(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store auction mirror")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithAuctionID(ctx, auctionID.String()), "auction mirror filled from lookup")
	}
	return nil
}

func (s *service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]BidDTO, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bids")
	}
	out := make([]BidDTO, 0, len(bids))
	for _, bid := range bids {
		out = append(out, toBidDTO(bid))
	}
	return out, nil
}
