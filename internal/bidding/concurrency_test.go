package bidding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db"
	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/migrate"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

// postgresDSNEnv points the row-lock tests at a real database. SQLite runs
// the same scenarios with writers serialized on one connection.
const postgresDSNEnv = "CARBIDZ_TEST_POSTGRES_DSN"

const concurrentBidders = 12

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(concurrentBidders + 2)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Run(context.Background(), sqlDB, migrate.ServiceBidding, "up"))
	return conn
}

func backends() map[string]func(*testing.T) *fixture {
	onPostgres := func(t *testing.T) *fixture { return newFixtureOn(t, openPostgres(t)) }
	return map[string]func(*testing.T) *fixture{"sqlite": newFixture, "postgres": onPostgres}
}

// bidConcurrently places one bid per bidder at once, amounts 1000, 1100, ...
func bidConcurrently(f *fixture, auctionID uuid.UUID) error {
	var wg sync.WaitGroup
	errs := make([]error, concurrentBidders)
	for i := range concurrentBidders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceBid(context.Background(), PlaceBidInput{
				AuctionID: auctionID,
				Bidder:    fmt.Sprintf("bidder-%d", i),
				Amount:    int64(1000 + 100*i),
			})
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func leaders(t *testing.T, f *fixture, auctionID uuid.UUID) []models.Bid {
	t.Helper()
	bids, err := f.repo.ListBids(context.Background(), auctionID)
	require.NoError(t, err)
	var out []models.Bid
	for _, b := range bids {
		if b.Status.IsLeading() {
			out = append(out, b)
		}
	}
	return out
}

func TestPlaceBidConcurrentBidsKeepOneLeader(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			f := open(t)
			auctionID := f.seedMirror(t, 0, f.now.Add(time.Hour))

			require.NoError(t, bidConcurrently(f, auctionID))

			bids, err := f.repo.ListBids(context.Background(), auctionID)
			require.NoError(t, err)
			require.Len(t, bids, concurrentBidders)

			lead := leaders(t, f, auctionID)
			require.Len(t, lead, 1, "exactly one bid may hold the lead")
			assert.Equal(t, int64(1000+100*(concurrentBidders-1)), lead[0].Amount)
			for _, b := range bids {
				if b.ID != lead[0].ID {
					assert.Equal(t, enums.BidStatusTooLow, b.Status, "bid %d", b.Amount)
				}
			}
		})
	}
}

func TestFinalizeDueRacingBidsAgreesWithLeader(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			f := open(t)
			logg := logger.New(logger.Options{ServiceName: "bidding-test", Output: &bytes.Buffer{}})
			auctionID := f.seedMirror(t, 0, f.now.Add(time.Minute))

			// Bids see the auction open; the sweep already sees it due.
			sweepAt := f.now.Add(2 * time.Minute)
			finalizer, err := NewFinalizer(FinalizerParams{
				Repo:   f.repo,
				Tx:     db.NewFromGorm(f.conn),
				Outbox: outbox.NewService(outbox.NewRepository(f.conn), logg),
				Logger: logg,
				Now:    func() time.Time { return sweepAt },
			})
			require.NoError(t, err)

			var wg sync.WaitGroup
			var bidErr, sweepErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				bidErr = bidConcurrently(f, auctionID)
			}()
			go func() {
				defer wg.Done()
				_, sweepErr = finalizer.FinalizeDue(context.Background())
			}()
			wg.Wait()
			require.NoError(t, bidErr)
			require.NoError(t, sweepErr)
			_, err = finalizer.FinalizeDue(context.Background())
			require.NoError(t, err)

			var rows []models.OutboxEvent
			require.NoError(t, f.conn.
				Where("event_type = ? AND aggregate_id = ?", enums.EventAuctionFinished, auctionID).
				Find(&rows).Error)
			require.Len(t, rows, 1, "an auction finishes once")
			var envelope outbox.PayloadEnvelope
			require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
			var finished payloads.AuctionFinishedEvent
			require.NoError(t, json.Unmarshal(envelope.Data, &finished))

			lead := leaders(t, f, auctionID)
			require.LessOrEqual(t, len(lead), 1)
			if len(lead) == 0 {
				assert.False(t, finished.ItemSold)
				return
			}
			require.True(t, finished.ItemSold)
			assert.Equal(t, lead[0].Bidder, *finished.Winner)
			assert.Equal(t, lead[0].Amount, *finished.Amount)

			bids, err := f.repo.ListBids(context.Background(), auctionID)
			require.NoError(t, err)
			for _, b := range bids {
				if b.Status != enums.BidStatusFinished {
					assert.LessOrEqual(t, b.Amount, lead[0].Amount)
				}
			}
		})
	}
}
