package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbidz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

func TestServiceEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	svc := NewService(NewRepository(db), nil)

	auctionID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, FromPayload(payloads.AuctionDeletedEvent{ID: auctionID}, &ActorRef{Subject: "alice"}))
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventAuctionDeleted, rows[0].EventType)
	assert.Equal(t, enums.AggregateAuction, rows[0].AggregateType)
	assert.Equal(t, auctionID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, CurrentVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "alice", envelope.Actor.Subject)

	var data payloads.AuctionDeletedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, auctionID, data.ID)
}

func TestServiceEmitRollsBackWithCaller(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, FromPayload(payloads.AuctionDeletedEvent{ID: uuid.New()}, nil)); err != nil {
			return err
		}
		return errors.New("domain write failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceEmitValidates(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	svc := NewService(NewRepository(db), nil)

	require.Error(t, svc.Emit(context.Background(), nil, FromPayload(payloads.AuctionDeletedEvent{ID: uuid.New()}, nil)))
	require.Error(t, svc.Emit(context.Background(), db, FromPayload(payloads.AuctionDeletedEvent{}, nil)))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: "bogus", AggregateID: uuid.New()}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	repo := NewRepository(db)
	now := time.Now().UTC()

	first := seedOutboxRow(t, db, now.Add(-2*time.Minute), 0)
	second := seedOutboxRow(t, db, now.Add(-time.Minute), 0)
	seedOutboxRow(t, db, now.Add(-3*time.Minute), 10) // exhausted, never fetched

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	require.NoError(t, repo.MarkPublishedTx(db, first.ID))
	require.NoError(t, repo.MarkFailedTx(db, second.ID, errors.New("pubsub down")))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "pubsub down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, second.ID, errors.New("gave up"), 10))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryFetchesOnlyHeadOfEachAuction(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	repo := NewRepository(db)
	now := time.Now().UTC()

	auctionID := uuid.New()
	updated := seedAuctionRow(t, db, auctionID, now.Add(-3*time.Minute), 0)
	deleted := seedAuctionRow(t, db, auctionID, now.Add(-2*time.Minute), 0)
	other := seedOutboxRow(t, db, now.Add(-time.Minute), 0)

	// A publisher that skipped the locked head must not see the later row.
	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, updated.ID, rows[0].ID)
	assert.Equal(t, other.ID, rows[1].ID)

	require.NoError(t, repo.MarkFailedTx(db, updated.ID, errors.New("pubsub down")))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, updated.ID, rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(db, updated.ID))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, deleted.ID, rows[0].ID)
}

func TestRepositoryParkedRowDoesNotBlockAuction(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	repo := NewRepository(db)
	now := time.Now().UTC()

	auctionID := uuid.New()
	parked := seedAuctionRow(t, db, auctionID, now.Add(-2*time.Minute), 0)
	next := seedAuctionRow(t, db, auctionID, now.Add(-time.Minute), 0)
	require.NoError(t, repo.MarkTerminalTx(db, parked.ID, errors.New("gave up"), 10))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, next.ID, rows[0].ID)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	repo := NewRepository(db)
	now := time.Now().UTC()

	oldPublished := seedOutboxRow(t, db, now.Add(-40*24*time.Hour), 1)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", oldPublished.ID).
		Update("published_at", now.Add(-40*24*time.Hour)).Error)
	recentPublished := seedOutboxRow(t, db, now.Add(-time.Hour), 1)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", recentPublished.ID).
		Update("published_at", now.Add(-time.Hour)).Error)
	oldTerminal := seedOutboxRow(t, db, now.Add(-40*24*time.Hour), 10)
	oldPending := seedOutboxRow(t, db, now.Add(-40*24*time.Hour), 2)

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Order("created_at ASC").Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{recentPublished.ID, oldPending.ID}, ids)
	assert.NotContains(t, ids, oldTerminal.ID)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDDL)
	dlq := NewDLQRepository(db)

	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       eventID,
		EventType:     enums.EventBidPlaced,
		AggregateType: enums.AggregateAuction,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	var found models.OutboxDLQ
	require.NoError(t, db.Where("event_id = ?", eventID).First(&found).Error)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
	assert.Error(t, dlq.InsertTx(nil, models.OutboxDLQ{}))
}

func seedOutboxRow(t *testing.T, db *gorm.DB, createdAt time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventBidPlaced,
		AggregateType: enums.AggregateAuction,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func seedAuctionRow(t *testing.T, db *gorm.DB, auctionID uuid.UUID, createdAt time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventAuctionUpdated,
		AggregateType: enums.AggregateAuction,
		AggregateID:   auctionID,
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}
