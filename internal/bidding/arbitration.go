package bidding

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/db/models"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
)

// Decision is the outcome of arbitrating one incoming bid.
type Decision struct {
	Status enums.BidStatus
	// Demote is the previous leader that loses the lead, if any.
	Demote *uuid.UUID
}

// Arbitrate decides the status of a new bid of amount against the mirror and
// the current leading bid. It has no side effects.
//
// A bid at or after the auction end is finished. Otherwise a bid that matches
// or beats the leader takes the lead (newest wins ties) and the leader is
// demoted; anything lower is too_low.
func Arbitrate(now time.Time, mirror models.AuctionMirror, leading *models.Bid, amount int64) Decision {
	if mirror.Finished || !now.Before(mirror.AuctionEnd) {
		return Decision{Status: enums.BidStatusFinished}
	}
	if leading != nil && amount < leading.Amount {
		return Decision{Status: enums.BidStatusTooLow}
	}

	status := enums.BidStatusAcceptedBelowReserve
	if amount > mirror.ReservePrice {
		status = enums.BidStatusAccepted
	}
	decision := Decision{Status: status}
	if leading != nil {
		id := leading.ID
		decision.Demote = &id
	}
	return decision
}
