// Package api defines the drinkless.v1.Profiles gRPC service: method names,
// the server and client interfaces and the service descriptor.
// Messages are well-known types (structpb.Struct, emptypb.Empty), so the
// default proto codec carries them without generated code.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "drinkless.v1.Profiles"

// Full method names.
const (
	MethodRegister      = "/" + ServiceName + "/Register"
	MethodLogin         = "/" + ServiceName + "/Login"
	MethodGetProfile    = "/" + ServiceName + "/GetProfile"
	MethodUpsertProfile = "/" + ServiceName + "/UpsertProfile"
	MethodDeleteAccount = "/" + ServiceName + "/DeleteAccount"
)

// ProfilesServer is the server API for the Profiles service.
type ProfilesServer interface {
	// Register takes {username, password} and returns {user_id}.
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Login takes {username, password} and returns {access_token, expires_at, user_id}.
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetProfile returns the caller's profile.
	GetProfile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// UpsertProfile merges a patch into the caller's profile and returns the result.
	UpsertProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// DeleteAccount removes the caller's account and profile.
	DeleteAccount(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }

func unary[Req, Resp proto.Message](method string, newReq func() Req, call func(ProfilesServer, context.Context, Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProfilesServer), ctx, req.(Req))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: method}, handler)
	}
}

// ServiceDesc describes the Profiles service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfilesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, newStruct, ProfilesServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, newStruct, ProfilesServer.Login)},
		{MethodName: "GetProfile", Handler: unary(MethodGetProfile, newEmpty, ProfilesServer.GetProfile)},
		{MethodName: "UpsertProfile", Handler: unary(MethodUpsertProfile, newStruct, ProfilesServer.UpsertProfile)},
		{MethodName: "DeleteAccount", Handler: unary(MethodDeleteAccount, newEmpty, ProfilesServer.DeleteAccount)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drinkless/v1/profiles",
}

// RegisterProfilesServer registers srv on s.
func RegisterProfilesServer(s grpc.ServiceRegistrar, srv ProfilesServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ProfilesClient is the client API for the Profiles service.
type ProfilesClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetProfile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpsertProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type profilesClient struct {
	cc grpc.ClientConnInterface
}

// NewProfilesClient returns a client bound to cc.
func NewProfilesClient(cc grpc.ClientConnInterface) ProfilesClient {
	return &profilesClient{cc: cc}
}

func (c *profilesClient) invokeStruct(ctx context.Context, method string, in proto.Message, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *profilesClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodRegister, in, opts)
}

func (c *profilesClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodLogin, in, opts)
}

func (c *profilesClient) GetProfile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodGetProfile, in, opts)
}

func (c *profilesClient) UpsertProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodUpsertProfile, in, opts)
}

func (c *profilesClient) DeleteAccount(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodDeleteAccount, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
