// Package grpc serves the admin channel, guestkeeper.admin.AdminService.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/guestkeeper/internal/adminapi"
	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/services"
	"google.golang.org/grpc"
)

// Admin is the command surface behind the admin channel.
type Admin interface {
	ListUsersAndTokens(ctx context.Context) ([]services.UserTokens, error)
	CreateToken(ctx context.Context, userID, name string, startOffsetMinutes, ttlMinutes int) (string, error)
	DeleteToken(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, userName, name string) (*models.User, error)
}

type GRPCServer struct {
	address     string
	admin       Admin
	logger      logging.Logger
	adminSecret []byte
	clock       clockx.Clock
}

// NewGRPCServer builds the admin server. An empty adminSecret leaves the
// channel unauthenticated.
func NewGRPCServer(a string, l logging.Logger, admin Admin, adminSecret string, clock clockx.Clock) (*GRPCServer, error) {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		admin:       admin,
		adminSecret: []byte(adminSecret),
		clock:       clock,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.adminTokenInterceptor))
	adminapi.RegisterAdminServiceServer(srv, &handler{admin: s.admin, logger: s.logger})
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
