// Package consumers wires domain event handlers onto Pub/Sub subscriptions
// with the shared idempotency, retry and fault plumbing.
package consumers

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/metrics"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/registry"
	"github.com/angelmondragon/carbidz-backend/pkg/redis"
	"github.com/angelmondragon/carbidz-backend/pkg/subscriber"
)

type subscriptionSource interface {
	Subscription(name string) *gcppubsub.Subscriber
	Publisher(name string) *gcppubsub.Publisher
}

// Runner is anything with a blocking receive loop.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

// Factory builds consumers that share one idempotency manager, attempt
// counter and fault publisher.
type Factory struct {
	source      subscriptionSource
	decoder     *registry.DecoderRegistry
	idempotency *idempotency.Manager
	attempts    *redis.Client
	faults      subscriber.FaultPublisher
	maxAttempts int
	attemptTTL  time.Duration
	logg        *logger.Logger
	metrics     *metrics.ConsumerMetrics
}

type FactoryParams struct {
	Config  *config.Config
	PubSub  subscriptionSource
	Redis   *redis.Client
	Logger  *logger.Logger
	Metrics *metrics.ConsumerMetrics
}

func NewFactory(params FactoryParams) (*Factory, error) {
	if params.Config == nil {
		return nil, errors.New("config required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	manager, err := idempotency.NewManager(params.Redis, params.Config.Eventing.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency manager: %w", err)
	}
	faults, err := subscriber.NewPubSubFaultPublisher(params.PubSub.Publisher(params.Config.PubSub.FaultTopic))
	if err != nil {
		return nil, err
	}
	return &Factory{
		source:      params.PubSub,
		decoder:     registry.NewAuctionDecoderRegistry(),
		idempotency: manager,
		attempts:    params.Redis,
		faults:      faults,
		maxAttempts: params.Config.Eventing.ConsumerMaxAttempts,
		attemptTTL:  params.Config.Eventing.AttemptCounterTTL,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// New attaches handler to the named subscription.
func (f *Factory) New(name, subscription string, handler subscriber.Handler) (*subscriber.Consumer, error) {
	sub := f.source.Subscription(subscription)
	if sub == nil {
		return nil, fmt.Errorf("%s: subscription %q not configured", name, subscription)
	}
	return subscriber.NewConsumer(subscriber.Params{
		Name:         name,
		Subscription: subscription,
		Receiver:     sub,
		Decoder:      f.decoder,
		Handler:      handler,
		Idempotency:  f.idempotency,
		Attempts:     f.attempts,
		Faults:       f.faults,
		MaxAttempts:  f.maxAttempts,
		AttemptTTL:   f.attemptTTL,
		Logger:       f.logg,
		Metrics:      f.metrics,
	})
}

// RunAll runs every runner until ctx is canceled or one of them fails, in
// which case the others are stopped too.
func RunAll(ctx context.Context, logg *logger.Logger, runners ...Runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			logg.Info(logg.WithField(ctx, "consumer", r.Name()), "consumer started")
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", r.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
