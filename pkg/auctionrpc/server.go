package auctionrpc

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

// NewServer builds a gRPC server exposing the lookup service and the standard
// health service.
func NewServer(impl LookupServer, logg *logger.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptor(logg)),
	}
	srv := grpc.NewServer(append(base, opts...)...)
	Register(srv, impl)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

func unaryInterceptor(logg *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if logg == nil {
			return resp, toStatus(err)
		}
		logCtx := logg.WithFields(ctx, map[string]any{
			"grpc_method": info.FullMethod,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil && pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
			logg.Error(logCtx, "grpc.error", err)
		}
		return resp, toStatus(err)
	}
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case pkgerrors.CodeValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case pkgerrors.CodeDependency:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
