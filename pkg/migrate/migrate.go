package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk root used by create/validate during development.
const DefaultDir = "pkg/migrate/migrations"

const (
	ServiceAuction = "auction"
	ServiceBidding = "bidding"
	ServiceSearch  = "search"
)

//go:embed migrations
var embedded embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Services lists the databases that carry their own migration set.
func Services() []string {
	return []string{ServiceAuction, ServiceBidding, ServiceSearch}
}

// DirFor returns the embedded migration directory of a service database.
func DirFor(service string) (string, error) {
	for _, candidate := range Services() {
		if candidate == service {
			return path.Join("migrations", service), nil
		}
	}
	return "", fmt.Errorf("unknown migration service %q", service)
}

// Embedded exposes the compiled-in migrations.
func Embedded() fs.FS {
	return embedded
}

// Run executes a standard goose command against the embedded migrations of service.
func Run(ctx context.Context, db *sql.DB, service string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := DirFor(service)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := prepareGoose(); err != nil {
		return err
	}

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, service string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	dir, err := DirFor(service)
	if err != nil {
		return err
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := prepareGoose(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil

	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil

	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}

func prepareGoose() error {
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
