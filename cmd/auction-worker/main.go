package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carbidz-backend/internal/auctions"
	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/internal/consumers"
	"github.com/angelmondragon/carbidz-backend/internal/cron"
	"github.com/angelmondragon/carbidz-backend/internal/faults"
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
	serviceKind = "auction-worker"
	cronLockKey = "auction-cron"
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

	dbClient, err := proc.Database(ctx, migrate.ServiceAuction)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx, cfg.PubSub.AuctionBidSubscription, cfg.PubSub.FaultSubscription)
	if err != nil {
		return err
	}

	consumerMetrics := metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)
	factory, err := consumers.NewFactory(consumers.FactoryParams{
		Config:  cfg,
		PubSub:  pubsubClient,
		Redis:   redisClient,
		Logger:  logg,
		Metrics: consumerMetrics,
	})
	if err != nil {
		return fmt.Errorf("consumer factory: %w", err)
	}

	projection, err := auctions.NewProjectionHandler(auctions.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return fmt.Errorf("auction projection: %w", err)
	}
	bidConsumer, err := factory.New(auctions.ProjectionConsumerName, cfg.PubSub.AuctionBidSubscription, projection)
	if err != nil {
		return fmt.Errorf("bid consumer: %w", err)
	}

	faultSub := pubsubClient.Subscription(cfg.PubSub.FaultSubscription)
	if faultSub == nil {
		return errors.New("fault subscription not configured")
	}
	faultConsumer, err := faults.NewConsumer(faults.NewRepository(dbClient.DB()), faultSub, cfg.PubSub.FaultSubscription, logg, consumerMetrics)
	if err != nil {
		return fmt.Errorf("fault consumer: %w", err)
	}

	cronService, err := newRetentionCron(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting auction worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumers.RunAll(gctx, logg, bidConsumer, faultConsumer)
	})
	g.Go(func() error {
		if err := cronService.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	return g.Wait()
}

// newRetentionCron prunes the auction database's outbox on the sweep interval.
func newRetentionCron(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cronLockKey), instance.GetID(), cfg.Bidding.SweepLockTTL)
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{retentionJob},
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Bidding.SweepInterval,
	})
}
