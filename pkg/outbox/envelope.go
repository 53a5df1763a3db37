package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. Subject is the identity string
// taken from the caller's token; system jobs leave it empty and set Service.
type ActorRef struct {
	Subject string `json:"subject,omitempty"`
	Service string `json:"service,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events and
// published verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a message body into its envelope.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, err
	}
	return envelope, nil
}
