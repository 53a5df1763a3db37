package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/angelmondragon/carbidz-backend/internal/bootstrap"
	"github.com/angelmondragon/carbidz-backend/pkg/db"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
)

type options struct {
	cmd     string
	service string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.service, "service", migrate.ServiceAuction, "service database: auction|bidding|search")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations root on disk (create/validate)")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	var err error
	switch opts.cmd {
	case "create", "validate":
		err = offline(opts)
	default:
		err = online(opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

// offline handles the commands that only touch migration files.
func offline(opts options) error {
	if opts.cmd == "create" {
		if opts.name == "" {
			return errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.service, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	}

	for _, svc := range migrate.Services() {
		if err := migrate.ValidateDir(filepath.Join(opts.dir, svc)); err != nil {
			return fmt.Errorf("%s: %w", svc, err)
		}
	}
	fmt.Println("migration validation passed")
	return nil
}

func online(opts options) error {
	if opts.cmd == "version" && opts.version == "" {
		return errors.New("missing -version")
	}

	proc, err := bootstrap.Start("migrate")
	if err != nil {
		return err
	}
	defer proc.Close()

	ctx := proc.Logger.WithFields(context.Background(), map[string]any{
		"env":     proc.Config.App.Env,
		"cmd":     opts.cmd,
		"service": opts.service,
	})
	dbClient, err := db.New(ctx, proc.Config.DB, proc.Logger)
	if err != nil {
		return err
	}
	proc.Defer("database", dbClient.Close)
	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	proc.Logger.Info(ctx, "migrate ready")

	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, opts.service, opts.cmd)
	case "version":
		return migrate.MigrateToVersion(ctx, sqlDB, opts.service, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}
