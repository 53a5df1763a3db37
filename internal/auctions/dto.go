package auctions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/money"
)

// CreateAuctionInput is validated by the controller before it reaches the service.
type CreateAuctionInput struct {
	Make         string
	Model        string
	Year         int
	Color        string
	Mileage      int
	ImageURL     string
	ReservePrice int64
	AuctionEnd   time.Time
}

// UpdateAuctionInput is a sparse patch; nil fields are left unchanged.
type UpdateAuctionInput struct {
	Make     *string
	Model    *string
	Year     *int
	Color    *string
	Mileage  *int
	ImageURL *string
}

func (in UpdateAuctionInput) empty() bool {
	return in.Make == nil && in.Model == nil && in.Year == nil &&
		in.Color == nil && in.Mileage == nil && in.ImageURL == nil
}

type AuctionDTO struct {
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

func toAuctionDTO(a models.Auction) AuctionDTO {
	return AuctionDTO{
		ID:                    a.ID,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
		AuctionEnd:            a.AuctionEnd,
		Seller:                a.Seller,
		Winner:                a.Winner,
		Make:                  a.Make,
		Model:                 a.Model,
		Year:                  a.Year,
		Color:                 a.Color,
		Mileage:               a.Mileage,
		ImageURL:              a.ImageURL,
		Status:                a.Status,
		ReservePrice:          a.ReservePrice,
		SoldAmount:            a.SoldAmount,
		CurrentHighBid:        a.CurrentHighBid,
		CurrentHighBidDisplay: money.FormatPtr(a.CurrentHighBid),
	}
}
