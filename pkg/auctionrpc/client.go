package auctionrpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
)

const defaultTimeout = 2 * time.Second

// Client calls the auction lookup service with a single bounded attempt.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

func NewClient(target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	if target == "" {
		return nil, errors.New("lookup target required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// GetAuction returns CodeNotFound when the auction does not exist and
// CodeDependency for timeouts, connection failures and anything else.
func (c *Client) GetAuction(ctx context.Context, id uuid.UUID) (*AuctionSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(AuctionSnapshot)
	if err := c.conn.Invoke(ctx, getAuctionMethod, &GetAuctionRequest{ID: id.String()}, out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "auction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auction lookup unavailable")
	}
	return out, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
