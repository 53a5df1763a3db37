package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carbidz-backend/api"
	"github.com/angelmondragon/carbidz-backend/api/routes"
	"github.com/angelmondragon/carbidz-backend/internal/bidding"
	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/internal/consumers"
	"github.com/angelmondragon/carbidz-backend/internal/cron"
	"github.com/angelmondragon/carbidz-backend/pkg/auctionrpc"
	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/db"
	"github.com/angelmondragon/carbidz-backend/pkg/instance"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/redis"
)

const (
	serviceKind = "bidding-service"
	cronLockKey = "bidding-cron"
)

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

	dbClient, err := proc.Database(ctx, migrate.ServiceBidding)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx, cfg.PubSub.BiddingAuctionSubscription)
	if err != nil {
		return err
	}

	lookup, err := auctionrpc.NewClient(cfg.Lookup.TargetAddr, cfg.Lookup.Timeout)
	if err != nil {
		return fmt.Errorf("auction lookup client: %w", err)
	}
	proc.Defer("lookup client", lookup.Close)

	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)
	repo := bidding.NewRepository(dbClient.DB())

	biddingService, err := bidding.NewService(bidding.ServiceParams{
		Repo:    repo,
		Tx:      dbClient,
		Outbox:  emitter,
		Lookup:  lookup,
		Metrics: auctionMetrics,
		Logger:  logg,
	})
	if err != nil {
		return fmt.Errorf("bidding service: %w", err)
	}

	finalizer, err := bidding.NewFinalizer(bidding.FinalizerParams{
		Repo:      repo,
		Tx:        dbClient,
		Outbox:    emitter,
		Metrics:   auctionMetrics,
		Logger:    logg,
		BatchSize: cfg.Bidding.SweepBatchSize,
	})
	if err != nil {
		return fmt.Errorf("auction finalizer: %w", err)
	}
	cronService, err := newCronService(cfg, logg, dbClient, redisClient, outboxRepo, finalizer)
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
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
	mirror, err := bidding.NewMirrorHandler(repo, logg)
	if err != nil {
		return fmt.Errorf("mirror handler: %w", err)
	}
	mirrorConsumer, err := factory.New(bidding.MirrorConsumerName, cfg.PubSub.BiddingAuctionSubscription, mirror)
	if err != nil {
		return fmt.Errorf("mirror consumer: %w", err)
	}

	httpServer := api.NewServer(cfg, routes.NewBiddingRouter(routes.Base{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}, biddingService))

	logg.Info(ctx, "starting bidding service")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg, logg, httpServer)
	})
	g.Go(func() error {
		return consumers.RunAll(gctx, logg, mirrorConsumer)
	})
	g.Go(func() error {
		if err := cronService.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	return g.Wait()
}

// newCronService schedules the finalization sweep and outbox retention under
// one distributed lock.
func newCronService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, outboxRepo *outbox.Repository, finalizer *bidding.Finalizer) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cronLockKey), instance.GetID(), cfg.Bidding.SweepLockTTL)
	if err != nil {
		return nil, err
	}
	finalizeJob, err := cron.NewAuctionFinalizeJob(cron.AuctionFinalizeJobParams{
		Logger:    logg,
		Finalizer: finalizer,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{finalizeJob, retentionJob},
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Bidding.SweepInterval,
	})
}
