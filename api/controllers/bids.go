package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/api/responses"
	"github.com/angelmondragon/carbidz-backend/api/validators"
	"github.com/angelmondragon/carbidz-backend/internal/bidding"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

type placeBidRequest struct {
	AuctionID string `json:"auctionId" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"gt=0"`
}

// PlaceBid answers 201 for every recorded bid, including rejected statuses.
func PlaceBid(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidder, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		var body placeBidRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAuctionID(ctx, body.AuctionID)
		}
		bid, err := svc.PlaceBid(ctx, bidding.PlaceBidInput{
			AuctionID: uuid.MustParse(body.AuctionID),
			Bidder:    bidder,
			Amount:    body.Amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

func ListBids(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, err := validators.ParseUUIDParam(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bids, err := svc.ListBids(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bids)
	}
}
