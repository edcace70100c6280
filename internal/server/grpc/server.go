// Package grpc exposes the account service over gRPC: the standard health
// service, reflection outside prod and a small auth service whose messages
// are protobuf well-known types.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// AuthService is the part of services.UserService the gRPC boundary uses.
type AuthService interface {
	LogInByEmailPassword(ctx context.Context, c services.Credentials) (*services.TokenPair, error)
	LogInByAccessToken(ctx context.Context, token string) (services.AuthStatus, error)
	UpdateAccessToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type GRPCServer struct {
	address string
	srv     *grpc.Server
	health  *health.Server
	auth    AuthService
	logger  logging.Logger
}

// NewGRPCServer builds the server and registers its services. Reflection is
// registered only when withReflection is set.
func NewGRPCServer(a string, l logging.Logger, svc AuthService, withReflection bool) *GRPCServer {
	s := &GRPCServer{
		address: a,
		health:  health.NewServer(),
		auth:    svc,
		logger:  l.With("module", "grpc_server"),
	}

	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.recoverInterceptor,
		s.loggingInterceptor,
		s.accessTokenInterceptor,
	))

	healthpb.RegisterHealthServer(s.srv, s.health)
	s.srv.RegisterService(&authServiceDesc, &authHandler{svc: svc, logger: s.logger})
	if withReflection {
		reflection.Register(s.srv)
	}

	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop flips health to NOT_SERVING and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.Stop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	return s.Serve(listen)
}
