package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/db"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations for service on boot, but only in dev
// with CARBIDZ_AUTO_MIGRATE on. Other environments migrate through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, service string) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	conn, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "migration_service": service})
	if err := Run(ctx, conn, service, "up"); err != nil {
		return fmt.Errorf("auto-migrate %s: %w", service, err)
	}
	logg.Info(ctx, "dev auto-migrate complete")
	return nil
}
