package grpc

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "x-request-id"

// publicMethods skip the access token guard.
var publicMethods = map[string]struct{}{
	LoginMethod:                    {},
	RefreshMethod:                  {},
	"/grpc.health.v1.Health/Check": {},
	"/grpc.health.v1.Health/Watch": {},
	"/grpc.health.v1.Health/List":  {},
}

func isPublic(method string) bool {
	if _, ok := publicMethods[method]; ok {
		return true
	}
	return strings.HasPrefix(method, "/grpc.reflection.")
}

func (s *GRPCServer) recoverInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeader); len(v) > 0 {
			requestID = v[0]
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := handler(ctx, req)

	args := []any{
		"request_id", requestID,
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"dur", time.Since(start),
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		args = append(args, "peer", p.Addr.String())
	}

	if err != nil {
		s.logger.Warn(ctx, "grpc", args...)
	} else {
		s.logger.Info(ctx, "grpc", args...)
	}

	return resp, err
}

// accessTokenInterceptor admits non-public calls only with a live access
// token in the access_token metadata key.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	st, err := s.auth.LogInByAccessToken(ctx, accessToken)
	if err != nil {
		s.logger.Error(ctx, "access token check failed", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	switch st {
	case services.Accepted:
		return handler(ctx, req)
	case services.Unauthorized:
		return nil, status.Error(codes.Unauthenticated, "token expired")
	default:
		return nil, status.Error(codes.InvalidArgument, "invalid token")
	}
}
