package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Event is the closed set of auction lifecycle payloads. Each variant reports
// its wire type and the auction it belongs to.
type Event interface {
	EventType() enums.OutboxEventType
	AuctionKey() uuid.UUID
}

// AuctionCreatedEvent carries the full auction as created.
type AuctionCreatedEvent struct {
	ID           uuid.UUID           `json:"id"`
	Seller       string              `json:"seller"`
	ReservePrice int64               `json:"reserve_price"`
	AuctionEnd   time.Time           `json:"auction_end"`
	Make         string              `json:"make"`
	Model        string              `json:"model"`
	Year         int                 `json:"year"`
	Color        string              `json:"color"`
	Mileage      int                 `json:"mileage"`
	ImageURL     string              `json:"image_url"`
	Status       enums.AuctionStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (AuctionCreatedEvent) EventType() enums.OutboxEventType { return enums.EventAuctionCreated }
func (e AuctionCreatedEvent) AuctionKey() uuid.UUID         { return e.ID }

// AuctionUpdatedEvent is a sparse patch; nil fields were not changed.
type AuctionUpdatedEvent struct {
	ID        uuid.UUID `json:"id"`
	Make      *string   `json:"make,omitempty"`
	Model     *string   `json:"model,omitempty"`
	Year      *int      `json:"year,omitempty"`
	Mileage   *int      `json:"mileage,omitempty"`
	Color     *string   `json:"color,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AuctionUpdatedEvent) EventType() enums.OutboxEventType { return enums.EventAuctionUpdated }
func (e AuctionUpdatedEvent) AuctionKey() uuid.UUID         { return e.ID }

// Changes returns the patched columns keyed by column name.
func (e AuctionUpdatedEvent) Changes() map[string]any {
	changes := map[string]any{}
	if e.Make != nil {
		changes["make"] = *e.Make
	}
	if e.Model != nil {
		changes["model"] = *e.Model
	}
	if e.Year != nil {
		changes["year"] = *e.Year
	}
	if e.Mileage != nil {
		changes["mileage"] = *e.Mileage
	}
	if e.Color != nil {
		changes["color"] = *e.Color
	}
	if e.ImageURL != nil {
		changes["image_url"] = *e.ImageURL
	}
	return changes
}

type AuctionDeletedEvent struct {
	ID uuid.UUID `json:"id"`
}

func (AuctionDeletedEvent) EventType() enums.OutboxEventType { return enums.EventAuctionDeleted }
func (e AuctionDeletedEvent) AuctionKey() uuid.UUID         { return e.ID }

// BidPlacedEvent is emitted for every bid, whatever its status.
type BidPlacedEvent struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	Bidder    string          `json:"bidder"`
	BidTime   time.Time       `json:"bid_time"`
	Amount    int64           `json:"amount"`
	Status    enums.BidStatus `json:"status"`
}

func (BidPlacedEvent) EventType() enums.OutboxEventType { return enums.EventBidPlaced }
func (e BidPlacedEvent) AuctionKey() uuid.UUID         { return e.AuctionID }

// AuctionFinishedEvent closes an auction. Winner and Amount are nil when
// ItemSold is false.
type AuctionFinishedEvent struct {
	AuctionID uuid.UUID `json:"auction_id"`
	ItemSold  bool      `json:"item_sold"`
	Winner    *string   `json:"winner"`
	Seller    string    `json:"seller"`
	Amount    *int64    `json:"amount"`
}

func (AuctionFinishedEvent) EventType() enums.OutboxEventType { return enums.EventAuctionFinished }
func (e AuctionFinishedEvent) AuctionKey() uuid.UUID         { return e.AuctionID }

// FaultEvent is published to the fault topic once a consumer gives up on a message.
type FaultEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	EventType    string    `json:"event_type"`
	Consumer     string    `json:"consumer"`
	Subscription string    `json:"subscription"`
	Attempts     int       `json:"attempts"`
	Reason       string    `json:"reason"`
	Payload      []byte    `json:"payload"`
	FailedAt     time.Time `json:"failed_at"`
}
