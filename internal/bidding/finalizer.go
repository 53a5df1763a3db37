package bidding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

const defaultFinalizeBatch = 100

// FinalizeResult summarizes one sweep.
type FinalizeResult struct {
	Scanned   int
	Finalized int
	Skipped   int
	Failed    int
}

type FinalizerParams struct {
	Repo      *Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Metrics   *metrics.AuctionMetrics
	Logger    *logger.Logger
	BatchSize int
	Now       func() time.Time
}

// Finalizer closes auctions whose end time has passed and emits one
// AuctionFinished per auction.
type Finalizer struct {
	repo      *Repository
	tx        txRunner
	outbox    outbox.Emitter
	metrics   *metrics.AuctionMetrics
	logg      *logger.Logger
	batchSize int
	now       func() time.Time
}

func NewFinalizer(params FinalizerParams) (*Finalizer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bidding repository required")
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
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultFinalizeBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Finalizer{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		batchSize: batch,
		now:       now,
	}, nil
}

// FinalizeDue sweeps one batch of due auctions. Each auction runs in its own
// transaction; failures are collected and the rest continue. The sweep stops
// between auctions when ctx is canceled.
func (f *Finalizer) FinalizeDue(ctx context.Context) (FinalizeResult, error) {
	var result FinalizeResult

	due, err := f.repo.DueMirrors(ctx, f.now(), f.batchSize)
	if err != nil {
		return result, fmt.Errorf("list due auctions: %w", err)
	}
	result.Scanned = len(due)

	var errs error
	for _, mirror := range due {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}

		logCtx := f.logg.WithAuctionID(ctx, mirror.AuctionID.String())
		finished, err := f.finalizeOne(ctx, mirror.AuctionID)
		if err != nil {
			result.Failed++
			f.logg.Error(logCtx, "auction finalize failed", err)
			errs = multierr.Append(errs, fmt.Errorf("auction %s: %w", mirror.AuctionID, err))
			continue
		}
		if finished == nil {
			result.Skipped++
			continue
		}

		result.Finalized++
		f.metrics.IncFinalized(finished.ItemSold)
		f.logg.Info(f.logg.WithField(logCtx, "item_sold", finished.ItemSold), "auction finalized")
	}
	return result, errs
}

// finalizeOne returns nil when another sweep already finished the auction.
func (f *Finalizer) finalizeOne(ctx context.Context, auctionID uuid.UUID) (*payloads.AuctionFinishedEvent, error) {
	var finished *payloads.AuctionFinishedEvent
	err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		mirror, err := f.repo.LockMirror(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if mirror == nil || mirror.Finished {
			return nil
		}
		if _, err := f.repo.MarkMirrorFinished(ctx, tx, auctionID); err != nil {
			return err
		}

		winning, err := f.repo.WinningBid(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		event := payloads.AuctionFinishedEvent{
			AuctionID: auctionID,
			Seller:    mirror.Seller,
		}
		if winning != nil {
			winner := winning.Bidder
			amount := winning.Amount
			event.ItemSold = true
			event.Winner = &winner
			event.Amount = &amount
		}
		if err := f.outbox.Emit(ctx, tx, outbox.FromPayload(event, &outbox.ActorRef{Service: "bidding"})); err != nil {
			return err
		}
		finished = &event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finished, nil
}
