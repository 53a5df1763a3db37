package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carbidz-backend/api"
	"github.com/angelmondragon/carbidz-backend/api/routes"
	"github.com/angelmondragon/carbidz-backend/internal/auctions"
	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/pkg/auctionrpc"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
)

const serviceKind = "auction-api"

func main() {
	proc, err := bootstrap.Start(serviceKind)
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := proc.SignalContext()
	defer stop()
	proc.Finish(ctx, run(ctx, proc))
}

func run(ctx context.Context, proc *bootstrap.Process) error {
	cfg, logg := proc.Config, proc.Logger

	dbClient, err := proc.Database(ctx, migrate.ServiceAuction)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	repo := auctions.NewRepository(dbClient.DB())
	auctionService, err := auctions.NewService(auctions.ServiceParams{
		Repo:   repo,
		Tx:     dbClient,
		Outbox: outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Logger: logg,
	})
	if err != nil {
		return fmt.Errorf("auction service: %w", err)
	}

	httpServer := api.NewServer(cfg, routes.NewAuctionRouter(routes.Base{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}, auctionService))

	// The bidding service validates bids against this lookup.
	grpcServer := auctionrpc.NewServer(auctions.NewLookupServer(repo), logg)
	lis, err := net.Listen("tcp", cfg.Lookup.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen for lookup rpc: %w", err)
	}

	logg.Info(ctx, "starting auction api")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg, logg, httpServer)
	})
	g.Go(func() error {
		logg.Info(logg.WithField(gctx, "addr", cfg.Lookup.ListenAddr), "lookup rpc listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}
