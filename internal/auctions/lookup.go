package auctions

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/carbidz-backend/pkg/auctionrpc"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
)

// LookupServer answers the bidding service's mirror-miss lookups.
type LookupServer struct {
	repo *Repository
}

func NewLookupServer(repo *Repository) *LookupServer {
	return &LookupServer{repo: repo}
}

func (s *LookupServer) GetAuction(ctx context.Context, req *auctionrpc.GetAuctionRequest) (*auctionrpc.AuctionSnapshot, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid auction id")
	}
	auction, err := s.repo.FindByID(ctx, nil, id)
	if isNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load auction")
	}
	return &auctionrpc.AuctionSnapshot{
		ID:           auction.ID,
		Seller:       auction.Seller,
		ReservePrice: auction.ReservePrice,
		AuctionEnd:   auction.AuctionEnd,
		Finished:     auction.Status != enums.AuctionStatusLive,
	}, nil
}
