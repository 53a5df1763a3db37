package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Auction is the canonical auction record owned by the auction service.
type Auction struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Make           string              `gorm:"column:make;type:text;not null"`
	Model          string              `gorm:"column:model;type:text;not null"`
	Year           int                 `gorm:"column:year;not null"`
	Color          string              `gorm:"column:color;type:text;not null"`
	Mileage        int                 `gorm:"column:mileage;not null"`
	ImageURL       string              `gorm:"column:image_url;type:text;not null"`
	ReservePrice   int64               `gorm:"column:reserve_price;not null;default:0"`
	Seller         string              `gorm:"column:seller;type:text;not null"`
	Winner         *string             `gorm:"column:winner;type:text"`
	SoldAmount     *int64              `gorm:"column:sold_amount"`
	CurrentHighBid *int64              `gorm:"column:current_high_bid"`
	Status         enums.AuctionStatus `gorm:"column:status;type:auction_status;not null"`
	AuctionEnd     time.Time           `gorm:"column:auction_end;type:timestamptz;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;type:timestamptz;autoCreateTime:false"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;type:timestamptz;autoUpdateTime:false"`
}

func (Auction) TableName() string { return "auctions" }
