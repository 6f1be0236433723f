package adminapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "guestkeeper.admin.AdminService"

const (
	ListUsersAndTokensMethod = "/" + ServiceName + "/ListUsersAndTokens"
	CreateTokenMethod        = "/" + ServiceName + "/CreateToken"
	DeleteTokenMethod        = "/" + ServiceName + "/DeleteToken"
	CreateUserMethod         = "/" + ServiceName + "/CreateUser"
)

// AdminServiceServer is the server API for the admin service.
type AdminServiceServer interface {
	ListUsersAndTokens(context.Context, *ListUsersAndTokensRequest) (*ListUsersAndTokensResponse, error)
	CreateToken(context.Context, *CreateTokenRequest) (*CreateTokenResponse, error)
	DeleteToken(context.Context, *DeleteTokenRequest) (*DeleteTokenResponse, error)
	CreateUser(context.Context, *CreateUserRequest) (*CreateUserResponse, error)
}

func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes guestkeeper.admin.AdminService. Messages travel
// through the JSON codec, so there is no protobuf descriptor behind it.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListUsersAndTokens", Handler: unaryHandler(ListUsersAndTokensMethod, AdminServiceServer.ListUsersAndTokens)},
		{MethodName: "CreateToken", Handler: unaryHandler(CreateTokenMethod, AdminServiceServer.CreateToken)},
		{MethodName: "DeleteToken", Handler: unaryHandler(DeleteTokenMethod, AdminServiceServer.DeleteToken)},
		{MethodName: "CreateUser", Handler: unaryHandler(CreateUserMethod, AdminServiceServer.CreateUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "guestkeeper/admin",
}

func unaryHandler[Req, Resp any](fullMethod string, call func(AdminServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdminServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AdminServiceClient is the client API for the admin service.
type AdminServiceClient interface {
	ListUsersAndTokens(ctx context.Context, in *ListUsersAndTokensRequest, opts ...grpc.CallOption) (*ListUsersAndTokensResponse, error)
	CreateToken(ctx context.Context, in *CreateTokenRequest, opts ...grpc.CallOption) (*CreateTokenResponse, error)
	DeleteToken(ctx context.Context, in *DeleteTokenRequest, opts ...grpc.CallOption) (*DeleteTokenResponse, error)
	CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*CreateUserResponse, error)
}

type adminServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminServiceClient(cc grpc.ClientConnInterface) AdminServiceClient {
	return &adminServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *adminServiceClient) ListUsersAndTokens(ctx context.Context, in *ListUsersAndTokensRequest, opts ...grpc.CallOption) (*ListUsersAndTokensResponse, error) {
	return invoke[ListUsersAndTokensResponse](ctx, c.cc, ListUsersAndTokensMethod, in, opts)
}

func (c *adminServiceClient) CreateToken(ctx context.Context, in *CreateTokenRequest, opts ...grpc.CallOption) (*CreateTokenResponse, error) {
	return invoke[CreateTokenResponse](ctx, c.cc, CreateTokenMethod, in, opts)
}

func (c *adminServiceClient) DeleteToken(ctx context.Context, in *DeleteTokenRequest, opts ...grpc.CallOption) (*DeleteTokenResponse, error) {
	return invoke[DeleteTokenResponse](ctx, c.cc, DeleteTokenMethod, in, opts)
}

func (c *adminServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*CreateUserResponse, error) {
	return invoke[CreateUserResponse](ctx, c.cc, CreateUserMethod, in, opts)
}
