package auctionrpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
)

type stubLookup struct {
	snapshots map[string]*AuctionSnapshot
	delay     time.Duration
}

func (s stubLookup) GetAuction(ctx context.Context, req *GetAuctionRequest) (*AuctionSnapshot, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if snap, ok := s.snapshots[req.ID]; ok {
		return snap, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
}

func startServer(t *testing.T, impl LookupServer) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(impl, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func dialer(lis *bufconn.Listener) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func TestClientGetAuction(t *testing.T) {
	id := uuid.New()
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lis := startServer(t, stubLookup{snapshots: map[string]*AuctionSnapshot{
		id.String(): {ID: id, Seller: "alice", ReservePrice: 10000, AuctionEnd: end},
	}})

	client, err := NewClient("passthrough:///bufnet", time.Second, dialer(lis))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	snap, err := client.GetAuction(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAuction: %v", err)
	}
	if snap.ID != id || snap.Seller != "alice" || snap.ReservePrice != 10000 || !snap.AuctionEnd.Equal(end) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	_, err = client.GetAuction(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientTimeoutMapsToDependency(t *testing.T) {
	lis := startServer(t, stubLookup{delay: time.Second})

	client, err := NewClient("passthrough:///bufnet", 50*time.Millisecond, dialer(lis))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.GetAuction(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServerRegistersHealth(t *testing.T) {
	lis := startServer(t, stubLookup{})
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()), dialer(lis))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status %v", resp.GetStatus())
	}
}

func TestNewClientRequiresTarget(t *testing.T) {
	if _, err := NewClient("", time.Second); err == nil {
		t.Fatal("expected error for empty target")
	}
}
