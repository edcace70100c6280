package grpc

import (
	"context"

	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	authServiceName = "dreamcalendar.auth.v1.AuthService"

	LoginMethod    = "/" + authServiceName + "/Login"
	RefreshMethod  = "/" + authServiceName + "/Refresh"
	ValidateMethod = "/" + authServiceName + "/Validate"
)

type authServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Validate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: authServiceName,
	HandlerType: (*authServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(LoginMethod, authServer.Login)},
		{MethodName: "Refresh", Handler: unaryHandler(RefreshMethod, authServer.Refresh)},
		{MethodName: "Validate", Handler: unaryHandler(ValidateMethod, authServer.Validate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dreamcalendar/auth/v1/auth.proto",
}

// unaryHandler adapts a typed method to grpc.MethodHandler the way generated
// code does.
func unaryHandler[Req any, Resp any](fullMethod string, call func(authServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(authServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(authServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type authHandler struct {
	svc    AuthService
	logger logging.Logger
}

// Login expects {"email": ..., "password": ...}.
func (h *authHandler) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	creds := services.Credentials{
		Email:    fields["email"].GetStringValue(),
		Password: fields["password"].GetStringValue(),
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}

	pair, err := h.svc.LogInByEmailPassword(ctx, creds)
	if err != nil {
		h.logger.Error(ctx, "login failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if pair == nil {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}

	return pairToStruct(pair)
}

// Refresh takes the refresh token as a plain string value.
func (h *authHandler) Refresh(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	pair, err := h.svc.UpdateAccessToken(ctx, in.GetValue())
	if err != nil {
		h.logger.Error(ctx, "refresh failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if pair == nil {
		return nil, status.Error(codes.InvalidArgument, "refresh token rejected, log in again")
	}

	return pairToStruct(pair)
}

// Validate does nothing itself; reaching it means the access token guard
// accepted the call.
func (h *authHandler) Validate(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func pairToStruct(p *services.TokenPair) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
