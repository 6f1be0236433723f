package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) adminTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if len(s.adminSecret) == 0 {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			token, _ = strings.CutPrefix(values[0], "Bearer ")
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := auth.VerifyAdminToken(token, s.adminSecret, s.clock.Now()); err != nil {
		if errors.Is(err, common.ErrExpiredSignature) {
			return nil, status.Error(codes.Unauthenticated, common.ErrExpiredSignature.Error())
		}
		s.logger.Warn(ctx, "admin call rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(ctx, req)
}
