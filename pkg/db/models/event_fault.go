package models

import (
	"time"

	"github.com/google/uuid"
)

// EventFault records a consumer message that exhausted its retry budget.
type EventFault struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID `gorm:"column:event_id;type:uuid;not null"`
	EventType    string    `gorm:"column:event_type;type:text;not null"`
	Consumer     string    `gorm:"column:consumer;type:text;not null"`
	Subscription string    `gorm:"column:subscription;type:text;not null"`
	Attempts     int       `gorm:"column:attempts;not null"`
	Reason       string    `gorm:"column:reason;type:text;not null"`
	Payload      []byte    `gorm:"column:payload;type:bytea"`
	FailedAt     time.Time `gorm:"column:failed_at;type:timestamptz;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
}

func (EventFault) TableName() string { return "event_faults" }
