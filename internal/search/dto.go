package search

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/money"
)

type ItemDTO struct {
	ID                    uuid.UUID           `json:"id"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
	AuctionEnd            time.Time           `json:"auctionEnd"`
	Seller                string              `json:"seller"`
	Winner                *string             `json:"winner"`
	Make                  string              `json:"make"`
	Model                 string              `json:"model"`
	Year                  int                 `json:"year"`
	Color                 string              `json:"color"`
	Mileage               int                 `json:"mileage"`
	ImageURL              string              `json:"imageUrl"`
	Status                enums.AuctionStatus `json:"status"`
	ReservePrice          int64               `json:"reservePrice"`
	SoldAmount            *int64              `json:"soldAmount"`
	CurrentHighBid        *int64              `json:"currentHighBid"`
	CurrentHighBidDisplay *string             `json:"currentHighBidDisplay"`
}

// ResultPage is the search response body.
type ResultPage struct {
	Results    []ItemDTO `json:"results"`
	PageCount  int       `json:"pageCount"`
	TotalCount int64     `json:"totalCount"`
}

func toItemDTO(item models.SearchItem) ItemDTO {
	return ItemDTO{
		ID:                    item.ID,
		CreatedAt:             item.CreatedAt,
		UpdatedAt:             item.UpdatedAt,
		AuctionEnd:            item.AuctionEnd,
		Seller:                item.Seller,
		Winner:                item.Winner,
		Make:                  item.Make,
		Model:                 item.Model,
		Year:                  item.Year,
		Color:                 item.Color,
		Mileage:               item.Mileage,
		ImageURL:              item.ImageURL,
		Status:                item.Status,
		ReservePrice:          item.ReservePrice,
		SoldAmount:            item.SoldAmount,
		CurrentHighBid:        item.CurrentHighBid,
		CurrentHighBidDisplay: money.FormatPtr(item.CurrentHighBid),
	}
}
