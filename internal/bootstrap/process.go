// Package bootstrap holds the startup sequence shared by every binary: env
// loading, config, logging, the backing clients and an ordered shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/db"
	"github.com/angelmondragon/carbidz-backend/pkg/instance"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
	"github.com/angelmondragon/carbidz-backend/pkg/pubsub"
	"github.com/angelmondragon/carbidz-backend/pkg/redis"
)

// Process is one running binary. Clients opened through it are closed in
// reverse order by Close.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Start loads .env and the config, then builds the logger at the configured
// level. Failures are logged before they are returned.
func Start(kind string) (*Process, error) {
	early := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		early.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		early.Error(context.Background(), "failed to load config", err)
		return nil, err
	}
	cfg.Service.Kind = kind

	return &Process{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}, nil
}

// Defer registers a cleanup to run on Close.
func (p *Process) Defer(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

// Close runs the registered cleanups newest first. It is safe to call twice.
func (p *Process) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			p.Logger.Error(context.Background(), "error closing "+c.name, err)
		}
	}
	p.closers = nil
}

// Database opens the service database and, in dev, applies its migrations.
func (p *Process) Database(ctx context.Context, service string) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	p.Defer("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client, service); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	p.Defer("redis", client.Close)
	return client, nil
}

// PubSub connects to Pub/Sub and verifies the given subscriptions exist.
func (p *Process) PubSub(ctx context.Context, subscriptions ...string) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, subscriptions, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	p.Defer("pubsub client", client.Close)
	return client, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// identity as log fields.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
		"service":     p.Config.Service.Name,
		"instance":    instance.GetID(),
	})
	return ctx, stop
}

// Finish logs how the process ended and exits non-zero on failure.
// Cancellation is treated as a graceful stop.
func (p *Process) Finish(ctx context.Context, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		p.Logger.Error(ctx, p.Kind+" stopped unexpectedly", err)
		p.Close()
		os.Exit(1)
	}
	p.Logger.Info(ctx, p.Kind+" shutting down gracefully")
	p.Close()
}
