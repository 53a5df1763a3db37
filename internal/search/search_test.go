package search

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carbidz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/carbidz-backend/pkg/pagination"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo    *Repository
	handler *ProjectionHandler
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t, dbtest.SearchItemsDDL)
	repo := NewRepository(conn)
	logg := logger.New(logger.Options{ServiceName: "search-test", Output: &bytes.Buffer{}})
	handler, err := NewProjectionHandler(repo, logg)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo: repo,
		Now:  func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return &fixture{repo: repo, handler: handler, svc: svc}
}

func (f *fixture) apply(t *testing.T, event payloads.Event) {
	t.Helper()
	require.NoError(t, f.handler.Handle(context.Background(), outbox.PayloadEnvelope{}, event))
}

func created(id uuid.UUID, brand, seller string, end time.Time, createdAt time.Time) payloads.AuctionCreatedEvent {
	return payloads.AuctionCreatedEvent{
		ID:           id,
		Seller:       seller,
		ReservePrice: 1000,
		AuctionEnd:   end,
		Make:         brand,
		Model:        "Model",
		Year:         2020,
		Color:        "Blue",
		Mileage:      5000,
		Status:       enums.AuctionStatusLive,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func ptr[T any](v T) *T { return &v }

func TestProjectionCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	event := created(id, "Ford", "alice", baseTime.Add(time.Hour), baseTime)

	f.apply(t, event)
	f.apply(t, event)

	item, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ford", item.Make)
	assert.Equal(t, enums.AuctionStatusLive, item.Status)
}

func TestProjectionUpdateDropsStalePatch(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.apply(t, created(id, "Ford", "alice", baseTime.Add(time.Hour), baseTime))

	f.apply(t, payloads.AuctionUpdatedEvent{ID: id, Color: ptr("Green"), UpdatedAt: baseTime.Add(2 * time.Minute)})
	f.apply(t, payloads.AuctionUpdatedEvent{ID: id, Color: ptr("Black"), Mileage: ptr(1), UpdatedAt: baseTime.Add(time.Minute)})

	item, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Green", item.Color)
	assert.Equal(t, 5000, item.Mileage)
	assert.True(t, item.SourceUpdatedAt.Equal(baseTime.Add(2*time.Minute)))
}

func TestProjectionHighBidIsMonotonic(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.apply(t, created(id, "Ford", "alice", baseTime.Add(time.Hour), baseTime))

	f.apply(t, payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "bob", Amount: 2000, Status: enums.BidStatusAccepted})
	f.apply(t, payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "carol", Amount: 1500, Status: enums.BidStatusAccepted})
	f.apply(t, payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "dave", Amount: 9000, Status: enums.BidStatusTooLow})

	item, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, item.CurrentHighBid)
	assert.Equal(t, int64(2000), *item.CurrentHighBid)
}

func TestProjectionFinishAppliesOnce(t *testing.T) {
	f := newFixture(t)
	sold := uuid.New()
	unsold := uuid.New()
	f.apply(t, created(sold, "Ford", "alice", baseTime.Add(-time.Hour), baseTime.Add(-2*time.Hour)))
	f.apply(t, created(unsold, "Audi", "alice", baseTime.Add(-time.Hour), baseTime.Add(-2*time.Hour)))

	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: sold, ItemSold: true, Winner: ptr("bob"), Seller: "alice", Amount: ptr(int64(2500))})
	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: sold, ItemSold: true, Winner: ptr("mallory"), Seller: "alice", Amount: ptr(int64(1))})
	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: unsold, ItemSold: false, Seller: "alice"})

	item, err := f.repo.FindByID(context.Background(), sold)
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStatusFinished, item.Status)
	require.NotNil(t, item.Winner)
	assert.Equal(t, "bob", *item.Winner)
	assert.Equal(t, int64(2500), *item.SoldAmount)

	item, err = f.repo.FindByID(context.Background(), unsold)
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStatusReserveNotMet, item.Status)
	assert.Nil(t, item.Winner)
	assert.Nil(t, item.SoldAmount)
}

func TestProjectionRetriesBidAndFinishUntilCreated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	bid := payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "bob", Amount: 1500, Status: enums.BidStatusAccepted}
	finished := payloads.AuctionFinishedEvent{AuctionID: id, ItemSold: true, Winner: ptr("bob"), Seller: "alice", Amount: ptr(int64(1500))}

	// Bid events use their own subscription and can beat AuctionCreated.
	err := f.handler.Handle(ctx, outbox.PayloadEnvelope{}, bid)
	require.ErrorIs(t, err, ErrNotIndexed)
	err = f.handler.Handle(ctx, outbox.PayloadEnvelope{}, finished)
	require.ErrorIs(t, err, ErrNotIndexed)

	f.apply(t, created(id, "Ford", "alice", baseTime.Add(-time.Minute), baseTime.Add(-time.Hour)))
	f.apply(t, finished)
	f.apply(t, bid)

	item, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStatusFinished, item.Status)
	require.NotNil(t, item.CurrentHighBid)
	assert.Equal(t, int64(1500), *item.CurrentHighBid)
	require.NotNil(t, item.Winner)
	assert.Equal(t, "bob", *item.Winner)
	require.NotNil(t, item.SoldAmount)
	assert.Equal(t, int64(1500), *item.SoldAmount)
}

func TestProjectionIgnoresOutbidAndRepeatedFinish(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.apply(t, created(id, "Ford", "alice", baseTime.Add(time.Hour), baseTime))
	f.apply(t, payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "bob", Amount: 2000, Status: enums.BidStatusAccepted})

	// Guarded no-ops on an indexed auction must still ack.
	f.apply(t, payloads.BidPlacedEvent{ID: uuid.New(), AuctionID: id, Bidder: "carol", Amount: 1000, Status: enums.BidStatusAccepted})
	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: id, ItemSold: false, Seller: "alice"})
	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: id, ItemSold: false, Seller: "alice"})

	item, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStatusReserveNotMet, item.Status)
	assert.Equal(t, int64(2000), *item.CurrentHighBid)
}

func TestProjectionDelete(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.apply(t, created(id, "Ford", "alice", baseTime.Add(time.Hour), baseTime))
	f.apply(t, payloads.AuctionDeletedEvent{ID: id})
	f.apply(t, payloads.AuctionDeletedEvent{ID: id})

	_, err := f.repo.FindByID(context.Background(), id)
	require.Error(t, err)
}

func seedCatalog(t *testing.T, f *fixture) {
	t.Helper()
	f.apply(t, created(uuid.New(), "Ford", "alice", baseTime.Add(48*time.Hour), baseTime.Add(-3*time.Hour)))
	f.apply(t, created(uuid.New(), "Audi", "bob", baseTime.Add(2*time.Hour), baseTime.Add(-2*time.Hour)))
	f.apply(t, created(uuid.New(), "BMW", "alice", baseTime.Add(24*time.Hour), baseTime.Add(-1*time.Hour)))
	ended := uuid.New()
	f.apply(t, created(ended, "Mazda", "bob", baseTime.Add(-time.Hour), baseTime.Add(-4*time.Hour)))
	f.apply(t, payloads.AuctionFinishedEvent{AuctionID: ended, ItemSold: true, Winner: ptr("carol"), Seller: "bob", Amount: ptr(int64(3000))})
}

func makes(page *ResultPage) []string {
	out := make([]string, 0, len(page.Results))
	for _, item := range page.Results {
		out = append(out, item.Make)
	}
	return out
}

func TestSearchDefaultsToLiveEndingSoonest(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	page, err := f.svc.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Audi", "BMW", "Ford"}, makes(page))
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 1, page.PageCount)
}

func TestSearchOrdering(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	page, err := f.svc.Search(context.Background(), Query{OrderBy: enums.SearchOrderMake})
	require.NoError(t, err)
	assert.Equal(t, []string{"Audi", "BMW", "Ford"}, makes(page))

	page, err = f.svc.Search(context.Background(), Query{OrderBy: enums.SearchOrderNew})
	require.NoError(t, err)
	assert.Equal(t, []string{"BMW", "Audi", "Ford"}, makes(page))
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	page, err := f.svc.Search(context.Background(), Query{Filter: enums.SearchFilterFinished})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mazda"}, makes(page))
	require.NotNil(t, page.Results[0].Winner)
	assert.Equal(t, "carol", *page.Results[0].Winner)

	page, err = f.svc.Search(context.Background(), Query{Filter: enums.SearchFilterEndingSoon})
	require.NoError(t, err)
	assert.Equal(t, []string{"Audi"}, makes(page))

	page, err = f.svc.Search(context.Background(), Query{Seller: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BMW", "Ford"}, makes(page))

	page, err = f.svc.Search(context.Background(), Query{Winner: "carol", Filter: enums.SearchFilterFinished})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mazda"}, makes(page))
}

func TestSearchTermAndPaging(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)

	page, err := f.svc.Search(context.Background(), Query{Term: "bmw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BMW"}, makes(page))

	page, err = f.svc.Search(context.Background(), Query{Page: pagination.Params{PageNumber: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ford"}, makes(page))
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.PageCount)

	page, err = f.svc.Search(context.Background(), Query{Term: "nothing-matches"})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 0, page.PageCount)
}
