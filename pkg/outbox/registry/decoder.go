package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox"
	"github.com/angelmondragon/carbidz-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (payloads.Event, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewAuctionDecoderRegistry registers version 1 of every auction event.
func NewAuctionDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventAuctionCreated, 1, decodeInto[payloads.AuctionCreatedEvent])
	reg.Register(enums.EventAuctionUpdated, 1, decodeInto[payloads.AuctionUpdatedEvent])
	reg.Register(enums.EventAuctionDeleted, 1, decodeInto[payloads.AuctionDeletedEvent])
	reg.Register(enums.EventBidPlaced, 1, decodeInto[payloads.BidPlacedEvent])
	reg.Register(enums.EventAuctionFinished, 1, decodeInto[payloads.AuctionFinishedEvent])
	return reg
}

// decodeInto returns the value form so handlers can switch on plain types.
func decodeInto[T payloads.Event](payload json.RawMessage) (payloads.Event, error) {
	var decoded T
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (payloads.Event, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}

// DecodeMessage parses a published envelope and decodes its data.
func (r *DecoderRegistry) DecodeMessage(eventType enums.OutboxEventType, body []byte) (outbox.PayloadEnvelope, payloads.Event, error) {
	envelope, err := outbox.DecodeEnvelope(body)
	if err != nil {
		return outbox.PayloadEnvelope{}, nil, fmt.Errorf("decode envelope: %w", err)
	}
	event, err := r.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		return envelope, nil, err
	}
	return envelope, event, nil
}
