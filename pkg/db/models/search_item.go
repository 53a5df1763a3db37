package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// SearchItem is the denormalized search projection of an auction. The
// search_vector column is generated by Postgres and never written here.
type SearchItem struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Make            string              `gorm:"column:make;type:text;not null"`
	Model           string              `gorm:"column:model;type:text;not null"`
	Year            int                 `gorm:"column:year;not null"`
	Color           string              `gorm:"column:color;type:text;not null"`
	Mileage         int                 `gorm:"column:mileage;not null"`
	ImageURL        string              `gorm:"column:image_url;type:text;not null"`
	ReservePrice    int64               `gorm:"column:reserve_price;not null;default:0"`
	Seller          string              `gorm:"column:seller;type:text;not null"`
	Winner          *string             `gorm:"column:winner;type:text"`
	SoldAmount      *int64              `gorm:"column:sold_amount"`
	CurrentHighBid  *int64              `gorm:"column:current_high_bid"`
	Status          enums.AuctionStatus `gorm:"column:status;type:text;not null"`
	AuctionEnd      time.Time           `gorm:"column:auction_end;type:timestamptz;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;type:timestamptz;autoCreateTime:false"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;type:timestamptz;autoUpdateTime:false"`
	SourceUpdatedAt time.Time           `gorm:"column:source_updated_at;type:timestamptz;not null"`
}

func (SearchItem) TableName() string { return "search_items" }
