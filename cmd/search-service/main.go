package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carbidz-backend/api"
	"github.com/angelmondragon/carbidz-backend/api/routes"
	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/internal/consumers"
	"github.com/angelmondragon/carbidz-backend/internal/search"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
	"github.com/angelmondragon/carbidz-backend/pkg/pagination"
)

const serviceKind = "search-service"

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

	dbClient, err := proc.Database(ctx, migrate.ServiceSearch)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx, cfg.PubSub.SearchAuctionSubscription, cfg.PubSub.SearchBidSubscription)
	if err != nil {
		return err
	}

	repo := search.NewRepository(dbClient.DB())
	searchService, err := search.NewService(search.ServiceParams{
		Repo:       repo,
		EndingSoon: cfg.Search.EndingSoonWindow,
		PageLimits: pagination.Limits{
			DefaultSize: cfg.Search.DefaultPageSize,
			MaxSize:     cfg.Search.MaxPageSize,
		},
	})
	if err != nil {
		return fmt.Errorf("search service: %w", err)
	}

	factory, err := consumers.NewFactory(consumers.FactoryParams{
		Config:  cfg,
		PubSub:  pubsubClient,
		Redis:   redisClient,
		Logger:  logg,
		Metrics: metrics.NewConsumerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("consumer factory: %w", err)
	}
	projection, err := search.NewProjectionHandler(repo, logg)
	if err != nil {
		return fmt.Errorf("search projection: %w", err)
	}

	// One projection handles both streams; each keeps its own dedupe scope.
	auctionConsumer, err := factory.New(search.AuctionConsumerName, cfg.PubSub.SearchAuctionSubscription, projection)
	if err != nil {
		return fmt.Errorf("auction events consumer: %w", err)
	}
	bidConsumer, err := factory.New(search.BidConsumerName, cfg.PubSub.SearchBidSubscription, projection)
	if err != nil {
		return fmt.Errorf("bid events consumer: %w", err)
	}

	httpServer := api.NewServer(cfg, routes.NewSearchRouter(routes.Base{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}, searchService))

	logg.Info(ctx, "starting search service")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg, logg, httpServer)
	})
	g.Go(func() error {
		return consumers.RunAll(gctx, logg, auctionConsumer, bidConsumer)
	})
	return g.Wait()
}
