// Package auctionrpc is the synchronous auction lookup used by the bidding
// service when its local mirror has no row for an auction.
package auctionrpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
)

const (
	ServiceName      = "carbidz.auction.v1.AuctionLookup"
	getAuctionMethod = "/" + ServiceName + "/GetAuction"
)

type GetAuctionRequest struct {
	ID string `json:"id"`
}

// AuctionSnapshot is the subset of an auction the bidding service mirrors.
type AuctionSnapshot struct {
	ID           uuid.UUID `json:"id"`
	Seller       string    `json:"seller"`
	ReservePrice int64     `json:"reserve_price"`
	AuctionEnd   time.Time `json:"auction_end"`
	Finished     bool      `json:"finished"`
}

// LookupServer is implemented by the auction service.
type LookupServer interface {
	GetAuction(ctx context.Context, req *GetAuctionRequest) (*AuctionSnapshot, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAuction", Handler: getAuctionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "carbidz/auction/v1/lookup",
}

// Register attaches impl to srv.
func Register(srv grpc.ServiceRegistrar, impl LookupServer) {
	srv.RegisterService(&serviceDesc, impl)
}

func getAuctionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAuctionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServer).GetAuction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getAuctionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServer).GetAuction(ctx, req.(*GetAuctionRequest))
	}
	return interceptor(ctx, in, info, handler)
}
