package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/carbidz-backend/internal/bidding"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

type fakeFinalizer struct {
	result bidding.FinalizeResult
	err    error
	calls  int
}

func (f *fakeFinalizer) FinalizeDue(context.Context) (bidding.FinalizeResult, error) {
	f.calls++
	return f.result, f.err
}

func TestAuctionFinalizeJob(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	finalizer := &fakeFinalizer{result: bidding.FinalizeResult{Scanned: 2, Finalized: 2}}
	job, err := NewAuctionFinalizeJob(AuctionFinalizeJobParams{Logger: logg, Finalizer: finalizer})
	if err != nil {
		t.Fatalf("NewAuctionFinalizeJob: %v", err)
	}
	if job.Name() != "auction-finalize" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	finalizer.err = errors.New("auction x: deadlock")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to surface")
	}
	if finalizer.calls != 2 {
		t.Fatalf("expected two sweeps, got %d", finalizer.calls)
	}
}

func TestAuctionFinalizeJobRequiresFinalizer(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	if _, err := NewAuctionFinalizeJob(AuctionFinalizeJobParams{Logger: logg}); err == nil {
		t.Fatal("expected error without finalizer")
	}
}
