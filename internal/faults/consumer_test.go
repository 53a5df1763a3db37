package faults

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carbidz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

type nopReceiver struct{}

func (nopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error { return nil }

func TestConsumerPersistsFaultOnce(t *testing.T) {
	conn := dbtest.Open(t, dbtest.EventFaultsDDL)
	repo := NewRepository(conn)
	out := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "auction-worker", Output: out})

	consumer, err := NewConsumer(repo, nopReceiver{}, "cb-event-faults", logg, nil)
	require.NoError(t, err)

	fault := payloads.FaultEvent{
		EventID:      uuid.New(),
		EventType:    "bid_placed",
		Consumer:     "search-projection",
		Subscription: "cb-search-bid-events",
		Attempts:     5,
		Reason:       "db down",
		Payload:      []byte(`{"broken":`),
		FailedAt:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(fault)
	require.NoError(t, err)

	consumer.Process(context.Background(), "m-1", data)
	consumer.Process(context.Background(), "m-2", data)

	rows, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fault.EventID, rows[0].EventID)
	assert.Equal(t, "search-projection", rows[0].Consumer)
	assert.Equal(t, fault.Payload, rows[0].Payload)
	assert.True(t, strings.Contains(out.String(), `"failed_consumer":"search-projection"`))
}

func TestConsumerDropsUndecodableFault(t *testing.T) {
	conn := dbtest.Open(t, dbtest.EventFaultsDDL)
	repo := NewRepository(conn)
	logg := logger.New(logger.Options{ServiceName: "auction-worker", Output: &bytes.Buffer{}})
	consumer, err := NewConsumer(repo, nopReceiver{}, "cb-event-faults", logg, nil)
	require.NoError(t, err)

	consumer.Process(context.Background(), "m-1", []byte("garbage"))

	rows, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
