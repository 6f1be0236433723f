package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
)

// UserCreator is implemented by providers that manage their own users,
// such as identity.LocalProvider.
type UserCreator interface {
	CreateUser(ctx context.Context, userName, name string, isOwner bool) (*models.User, error)
}

// TokenInfo is a live guest token as shown to an admin.
type TokenInfo struct {
	ID               int64
	Name             string
	SignedToken      string
	StartAt          time.Time
	EndAt            time.Time
	RemainingSeconds int64
	IsUsed           bool
}

// UserTokens groups a user with its live guest tokens.
type UserTokens struct {
	User   *models.User
	Tokens []TokenInfo
}

// AdminService implements the admin commands.
type AdminService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	provider        identity.Provider
	issuer          *Issuer
	sweeper         *Sweeper
	clock           clockx.Clock
	upstreamTimeout time.Duration
	logger          logging.Logger
}

func NewAdminService(db *sql.DB, rm repomanager.RepositoryManager, provider identity.Provider,
	issuer *Issuer, sweeper *Sweeper, clock clockx.Clock, cfg *config.Config, logger logging.Logger) *AdminService {
	return &AdminService{
		db:              db,
		repomanager:     rm,
		provider:        provider,
		issuer:          issuer,
		sweeper:         sweeper,
		clock:           clock,
		upstreamTimeout: cfg.UpstreamTimeout,
		logger:          logger.With("module", "admin"),
	}
}

// ListUsersAndTokens sweeps expired tokens and then returns every user with
// its remaining tokens.
func (s *AdminService) ListUsersAndTokens(ctx context.Context) ([]UserTokens, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}

	var users []*models.User
	if err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
		var err error
		users, err = s.provider.ListUsers(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	tokens, err := s.repomanager.GuestTokens(s.db).ListAll(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	now := s.clock.Now()
	byUser := make(map[string][]TokenInfo, len(users))
	for _, t := range tokens {
		if t.ExpiredAt(now) {
			continue
		}
		byUser[t.UserID] = append(byUser[t.UserID], TokenInfo{
			ID:               t.ID,
			Name:             t.Name,
			SignedToken:      t.SignedToken,
			StartAt:          t.StartAt,
			EndAt:            t.EndAt,
			RemainingSeconds: int64(t.Remaining(now).Seconds()),
			IsUsed:           t.IsUsed(),
		})
	}

	result := make([]UserTokens, 0, len(users))
	for _, u := range users {
		result = append(result, UserTokens{User: u, Tokens: byUser[u.ID]})
	}
	return result, nil
}

func (s *AdminService) CreateToken(ctx context.Context, userID, name string, startOffsetMinutes, ttlMinutes int) (string, error) {
	return s.issuer.Issue(ctx, userID, name, startOffsetMinutes, ttlMinutes)
}

// DeleteToken revokes the token's session credential, if any, and deletes
// the record. A failed revocation leaves the record in place.
//
// The delete only matches the credential ref that was read. A redemption
// that stores a credential in between makes it miss, and the record is
// read again so the new credential is revoked too. A ref is set at most
// once, so two rounds are enough.
func (s *AdminService) DeleteToken(ctx context.Context, id int64) error {
	repo := s.repomanager.GuestTokens(s.db)

	for round := 0; round < 2; round++ {
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return storageError(err)
		}

		if t.SessionCredentialRef != "" {
			if err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
				return s.provider.RevokeSessionCredential(ctx, t.SessionCredentialRef)
			}); err != nil {
				return fmt.Errorf("revoke session credential: %w", err)
			}
		}

		deleted, err := repo.Delete(ctx, id, t.SessionCredentialRef)
		if err != nil {
			return storageError(err)
		}
		if deleted {
			s.logger.Info(ctx, "guest token deleted", "token_id", id, "revoked", t.SessionCredentialRef != "")
			return nil
		}
		s.logger.Debug(ctx, "guest token changed during delete, retrying", "token_id", id)
	}
	return fmt.Errorf("%w: guest token %d kept changing during delete", common.ErrStorage, id)
}

// CreateUser adds a user when the provider manages its own users.
func (s *AdminService) CreateUser(ctx context.Context, userName, name string) (*models.User, error) {
	c, ok := s.provider.(UserCreator)
	if !ok {
		return nil, fmt.Errorf("identity provider does not create users: %w", errors.ErrUnsupported)
	}
	return c.CreateUser(ctx, userName, name, false)
}
