package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/guestkeeper/internal/adminapi"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type handler struct {
	admin  Admin
	logger logging.Logger
}

func (h *handler) ListUsersAndTokens(ctx context.Context, _ *adminapi.ListUsersAndTokensRequest) (*adminapi.ListUsersAndTokensResponse, error) {
	list, err := h.admin.ListUsersAndTokens(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}

	resp := &adminapi.ListUsersAndTokensResponse{Users: make([]adminapi.UserTokens, 0, len(list))}
	for _, ut := range list {
		tokens := make([]adminapi.Token, 0, len(ut.Tokens))
		for _, t := range ut.Tokens {
			tokens = append(tokens, adminapi.Token{
				ID:          t.ID,
				Name:        t.Name,
				SignedToken: t.SignedToken,
				StartAt:     t.StartAt,
				EndAt:       t.EndAt,
				Remaining:   t.RemainingSeconds,
				IsUsed:      t.IsUsed,
			})
		}
		resp.Users = append(resp.Users, adminapi.UserTokens{User: toUser(ut.User), Tokens: tokens})
	}
	return resp, nil
}

func (h *handler) CreateToken(ctx context.Context, req *adminapi.CreateTokenRequest) (*adminapi.CreateTokenResponse, error) {
	signed, err := h.admin.CreateToken(ctx, req.UserID, req.Name, req.StartOffsetMinutes, req.TTLMinutes)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &adminapi.CreateTokenResponse{SignedToken: signed}, nil
}

func (h *handler) DeleteToken(ctx context.Context, req *adminapi.DeleteTokenRequest) (*adminapi.DeleteTokenResponse, error) {
	if err := h.admin.DeleteToken(ctx, req.TokenID); err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &adminapi.DeleteTokenResponse{OK: true}, nil
}

func (h *handler) CreateUser(ctx context.Context, req *adminapi.CreateUserRequest) (*adminapi.CreateUserResponse, error) {
	u, err := h.admin.CreateUser(ctx, req.UserName, req.Name)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &adminapi.CreateUserResponse{User: toUser(u)}, nil
}

func toUser(u *models.User) adminapi.User {
	if u == nil {
		return adminapi.User{}
	}
	return adminapi.User{ID: u.ID, UserName: u.UserName, Name: u.Name, IsOwner: u.IsOwner, IsActive: u.IsActive}
}

func (h *handler) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidWindow), errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrTokenNotFound), errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrKeyUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrUpstreamTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	default:
		h.logger.Error(ctx, "admin command failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
