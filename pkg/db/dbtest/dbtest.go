// Package dbtest opens in-memory SQLite databases shaped like the service
// schemas so repository tests run without Postgres.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const OutboxDDL = `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`

const AuctionsDDL = `
CREATE TABLE IF NOT EXISTS auctions (
  id TEXT PRIMARY KEY,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  year INTEGER NOT NULL,
  color TEXT NOT NULL,
  mileage INTEGER NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  reserve_price INTEGER NOT NULL DEFAULT 0,
  seller TEXT NOT NULL,
  winner TEXT,
  sold_amount INTEGER,
  current_high_bid INTEGER,
  status TEXT NOT NULL DEFAULT 'live',
  auction_end DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

const EventFaultsDDL = `
CREATE TABLE IF NOT EXISTS event_faults (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  consumer TEXT NOT NULL,
  subscription TEXT NOT NULL,
  attempts INTEGER NOT NULL,
  reason TEXT NOT NULL,
  payload BLOB,
  failed_at DATETIME NOT NULL,
  created_at DATETIME,
  UNIQUE (event_id, consumer)
);`

const BiddingDDL = `
CREATE TABLE IF NOT EXISTS auction_mirrors (
  auction_id TEXT PRIMARY KEY,
  seller TEXT NOT NULL,
  reserve_price INTEGER NOT NULL DEFAULT 0,
  auction_end DATETIME NOT NULL,
  finished INTEGER NOT NULL DEFAULT 0,
  source_updated_at DATETIME NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS bids (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  bidder TEXT NOT NULL,
  amount INTEGER NOT NULL CHECK (amount > 0),
  bid_time DATETIME NOT NULL,
  status TEXT NOT NULL
);`

// SearchItemsDDL omits the generated tsvector column; text search is
// exercised against Postgres only.
const SearchItemsDDL = `
CREATE TABLE IF NOT EXISTS search_items (
  id TEXT PRIMARY KEY,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  year INTEGER NOT NULL,
  color TEXT NOT NULL,
  mileage INTEGER NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  reserve_price INTEGER NOT NULL DEFAULT 0,
  seller TEXT NOT NULL,
  winner TEXT,
  sold_amount INTEGER,
  current_high_bid INTEGER,
  status TEXT NOT NULL DEFAULT 'live',
  auction_end DATETIME NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  source_updated_at DATETIME NOT NULL
);`

// Open returns a fresh named in-memory database with the given DDL applied.
func Open(t *testing.T, ddl ...string) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory db alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, block := range ddl {
		for _, stmt := range strings.Split(block, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			require.NoError(t, conn.Exec(stmt).Error)
		}
	}
	return conn
}
