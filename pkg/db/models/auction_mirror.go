package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionMirror is the bidding service's local copy of the auction fields that
// arbitration needs.
type AuctionMirror struct {
	AuctionID       uuid.UUID `gorm:"column:auction_id;type:uuid;primaryKey"`
	Seller          string    `gorm:"column:seller;type:text;not null"`
	ReservePrice    int64     `gorm:"column:reserve_price;not null;default:0"`
	AuctionEnd      time.Time `gorm:"column:auction_end;type:timestamptz;not null"`
	Finished        bool      `gorm:"column:finished;not null;default:false"`
	SourceUpdatedAt time.Time `gorm:"column:source_updated_at;type:timestamptz;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
}

func (AuctionMirror) TableName() string { return "auction_mirrors" }
