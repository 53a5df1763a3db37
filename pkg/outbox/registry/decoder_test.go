package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventAuctionDeleted, 1, func(payload json.RawMessage) (payloads.Event, error) {
		var decoded payloads.AuctionDeletedEvent
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	id := uuid.New()
	output, err := reg.Decode(enums.EventAuctionDeleted, 1, mustMarshal(t, payloads.AuctionDeletedEvent{ID: id}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted, ok := output.(payloads.AuctionDeletedEvent); !ok || deleted.ID != id {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventAuctionDeleted, 2, nil); err == nil {
		t.Fatal("expected error for unregistered version")
	}
}

func TestAuctionDecoderRegistryDecodeMessage(t *testing.T) {
	reg := NewAuctionDecoderRegistry()
	auctionID := uuid.New()
	winner := "bob"
	amount := int64(15000)

	body := mustEnvelope(t, mustMarshal(t, payloads.AuctionFinishedEvent{
		AuctionID: auctionID,
		ItemSold:  true,
		Winner:    &winner,
		Seller:    "alice",
		Amount:    &amount,
	}))

	envelope, event, err := reg.DecodeMessage(enums.EventAuctionFinished, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("unexpected version %d", envelope.Version)
	}
	finished, ok := event.(payloads.AuctionFinishedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", event)
	}
	if finished.AuctionID != auctionID || finished.Winner == nil || *finished.Winner != "bob" || *finished.Amount != 15000 {
		t.Fatalf("unexpected payload %+v", finished)
	}
}

func TestAuctionDecoderRegistryRejectsGarbage(t *testing.T) {
	reg := NewAuctionDecoderRegistry()
	if _, _, err := reg.DecodeMessage(enums.EventBidPlaced, []byte("not-json")); err == nil {
		t.Fatal("expected envelope decode error")
	}
	body := mustEnvelope(t, []byte(`{"amount":"lots"}`))
	if _, _, err := reg.DecodeMessage(enums.EventBidPlaced, body); err == nil {
		t.Fatal("expected payload decode error")
	}
	body = mustEnvelope(t, mustMarshal(t, payloads.BidPlacedEvent{ID: uuid.New(), BidTime: time.Now()}))
	if _, _, err := reg.DecodeMessage(enums.OutboxEventType("order_created"), body); err == nil {
		t.Fatal("expected unknown event type error")
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

// mustEnvelope wraps data in a version 1 payload envelope.
func mustEnvelope(t *testing.T, data []byte) []byte {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}
