package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/adminapi"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const adminTokenTTL = time.Minute

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      adminapi.AdminServiceClient
	adminSecret []byte
	now         func() time.Time
}

func withAdminToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) adminTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if len(s.adminSecret) > 0 {
		token, err := auth.GenerateAdminToken(s.adminSecret, s.now(), adminTokenTTL)
		if err != nil {
			return fmt.Errorf("mint admin token: %w", err)
		}
		ctx = withAdminToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewAdminClient prepares a client for endpointURL. The connection is
// established lazily on the first call.
func NewAdminClient(endpointURL string, adminSecret []byte, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, adminSecret: adminSecret, now: time.Now}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.adminTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = adminapi.NewAdminServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) ListUsersAndTokens(ctx context.Context) ([]adminapi.UserTokens, error) {
	resp, err := s.client.ListUsersAndTokens(ctx, &adminapi.ListUsersAndTokensRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Users, nil
}

func (s *GRPCClient) CreateToken(ctx context.Context, userID, name string, startOffsetMinutes, ttlMinutes int) (string, error) {
	resp, err := s.client.CreateToken(ctx, &adminapi.CreateTokenRequest{
		UserID:             userID,
		Name:               name,
		StartOffsetMinutes: startOffsetMinutes,
		TTLMinutes:         ttlMinutes,
	})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.SignedToken, nil
}

func (s *GRPCClient) DeleteToken(ctx context.Context, id int64) error {
	if _, err := s.client.DeleteToken(ctx, &adminapi.DeleteTokenRequest{TokenID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) CreateUser(ctx context.Context, userName, name string) (adminapi.User, error) {
	resp, err := s.client.CreateUser(ctx, &adminapi.CreateUserRequest{UserName: userName, Name: name})
	if err != nil {
		return adminapi.User{}, s.mapError(err)
	}
	return resp.User, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalid, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
