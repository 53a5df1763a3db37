package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Bid is one row of the bid ledger. Only Status changes after insert.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null"`
	Bidder    string          `gorm:"column:bidder;type:text;not null"`
	Amount    int64           `gorm:"column:amount;not null"`
	BidTime   time.Time       `gorm:"column:bid_time;type:timestamptz;not null"`
	Status    enums.BidStatus `gorm:"column:status;type:bid_status;not null"`
}

func (Bid) TableName() string { return "bids" }
