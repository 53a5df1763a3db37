package bidding

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/money"
)

// PlaceBidInput is a bid submission from an authenticated bidder.
type PlaceBidInput struct {
	AuctionID uuid.UUID
	Bidder    string
	Amount    int64
}

type BidDTO struct {
	ID            uuid.UUID       `json:"id"`
	AuctionID     uuid.UUID       `json:"auctionId"`
	Bidder        string          `json:"bidder"`
	BidTime       time.Time       `json:"bidTime"`
	Amount        int64           `json:"amount"`
	AmountDisplay string          `json:"amountDisplay"`
	Status        enums.BidStatus `json:"bidStatus"`
}

func toBidDTO(bid models.Bid) BidDTO {
	return BidDTO{
		ID:            bid.ID,
		AuctionID:     bid.AuctionID,
		Bidder:        bid.Bidder,
		BidTime:       bid.BidTime,
		Amount:        bid.Amount,
		AmountDisplay: money.Format(bid.Amount),
		Status:        bid.Status,
	}
}
