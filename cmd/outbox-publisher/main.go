package main

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/registry"
)

func main() {
	proc, err := bootstrap.Start("outbox-publisher")
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := proc.SignalContext()
	defer stop()
	proc.Finish(ctx, run(ctx, proc))
}

// run drains the outbox of whichever service database CARBIDZ_SERVICE_NAME
// points at. One publisher runs per service database.
func run(ctx context.Context, proc *bootstrap.Process) error {
	cfg := proc.Config

	dbClient, err := proc.Database(ctx, cfg.Service.Name)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        proc.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	proc.Logger.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}
