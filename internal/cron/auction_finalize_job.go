package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/carbidz-backend/internal/bidding"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

type auctionFinalizer interface {
	FinalizeDue(ctx context.Context) (bidding.FinalizeResult, error)
}

type AuctionFinalizeJobParams struct {
	Logger    *logger.Logger
	Finalizer auctionFinalizer
}

// NewAuctionFinalizeJob closes auctions past their end time. A partially
// failed sweep reports an error; failed auctions are picked up next cycle.
func NewAuctionFinalizeJob(params AuctionFinalizeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Finalizer == nil {
		return nil, fmt.Errorf("auction finalizer required")
	}
	return &auctionFinalizeJob{logg: params.Logger, finalizer: params.Finalizer}, nil
}

type auctionFinalizeJob struct {
	logg      *logger.Logger
	finalizer auctionFinalizer
}

func (j *auctionFinalizeJob) Name() string { return "auction-finalize" }

func (j *auctionFinalizeJob) Run(ctx context.Context) error {
	result, err := j.finalizer.FinalizeDue(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":   result.Scanned,
		"finalized": result.Finalized,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})
	if err != nil {
		return fmt.Errorf("auction finalize: %w", err)
	}
	if result.Scanned > 0 {
		j.logg.Info(logCtx, "auction finalize sweep complete")
	}
	return nil
}
