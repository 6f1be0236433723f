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
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/guesttokens"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	// leaseSlack keeps a redemption lease alive past the provider deadline,
	// so a lease never lapses under a winner that is still working.
	leaseSlack = 5 * time.Second

	defaultPollInterval = 50 * time.Millisecond
)

var (
	errRedemptionPending = errors.New("redemption in progress elsewhere")
	errLeaseLost         = errors.New("redemption lease lost")
)

// HandoffPayload is what a successful redemption gives to the bearer.
type HandoffPayload struct {
	BearerToken string
}

// Redeemer exchanges guest tokens for session credentials.
//
// The ISSUED -> REDEEMED transition is decided in the store: a caller first
// takes a short lease on the record with a conditional update, only the
// lease holder asks the provider for a credential, and the credential is
// written with a second conditional update that requires both the lease and
// an empty credential. Everyone else polls the record until the credential
// shows up or the lease lapses.
type Redeemer struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	keys            KeySource
	provider        identity.Provider
	clock           clockx.Clock
	upstreamTimeout time.Duration
	lease           time.Duration
	pollInterval    time.Duration
	logger          logging.Logger
}

func NewRedeemer(db *sql.DB, rm repomanager.RepositoryManager, keys KeySource, provider identity.Provider,
	clock clockx.Clock, cfg *config.Config, logger logging.Logger) *Redeemer {
	return &Redeemer{
		db:              db,
		repomanager:     rm,
		keys:            keys,
		provider:        provider,
		clock:           clock,
		upstreamTimeout: cfg.UpstreamTimeout,
		lease:           cfg.UpstreamTimeout + leaseSlack,
		pollInterval:    defaultPollInterval,
		logger:          logger.With("module", "redeemer"),
	}
}

// Redeem verifies presented and returns the session bearer token for it,
// creating the session credential on first use.
func (s *Redeemer) Redeem(ctx context.Context, presented string) (*HandoffPayload, error) {
	now := s.clock.Now()

	w, err := auth.ParseGuestToken(presented, s.keys.PublicKey(), now)
	if err != nil {
		return nil, err
	}
	if now.Before(w.StartAt) {
		return nil, common.ErrNotYetValid
	}
	if now.After(w.EndAt) {
		return nil, common.ErrWindowExpired
	}

	repo := s.repomanager.GuestTokens(s.db)
	rec, err := repo.GetBySignedToken(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, storageError(err)
	}

	if err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
		_, err := s.provider.GetUser(ctx, rec.UserID)
		return err
	}); err != nil {
		return nil, err
	}

	if rec.State() == models.StateRedeemed {
		s.logger.Debug(ctx, "guest token replayed", "token_id", rec.ID)
		return &HandoffPayload{BearerToken: rec.SessionBearerToken}, nil
	}

	bearer, err := s.exchange(ctx, repo, rec)
	if err != nil {
		return nil, err
	}
	return &HandoffPayload{BearerToken: bearer}, nil
}

func (s *Redeemer) exchange(ctx context.Context, repo guesttokens.Repository, rec *models.GuestToken) (string, error) {
	claimID := uuid.NewString()
	var bearer string

	b := retry.WithMaxDuration(s.lease, retry.NewConstant(s.pollInterval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		won, err := repo.Claim(ctx, rec.ID, claimID, s.clock.Now(), s.lease)
		if err != nil {
			return storageError(err)
		}
		if won {
			bearer, err = s.createAndStore(ctx, repo, rec, claimID)
			if errors.Is(err, errLeaseLost) {
				return retry.RetryableError(err)
			}
			return err
		}

		cur, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return storageError(err)
		}
		if cur.IsUsed() {
			bearer = cur.SessionBearerToken
			return nil
		}
		return retry.RetryableError(errRedemptionPending)
	})
	if errors.Is(err, errRedemptionPending) || errors.Is(err, errLeaseLost) {
		return "", fmt.Errorf("%w: %w", common.ErrUpstreamTimeout, err)
	}
	if err != nil {
		return "", err
	}
	return bearer, nil
}

// createAndStore runs under the lease held by claimID.
func (s *Redeemer) createAndStore(ctx context.Context, repo guesttokens.Repository, rec *models.GuestToken, claimID string) (string, error) {
	ttl := rec.EndAt.Sub(s.clock.Now())
	if ttl < 0 {
		ttl = 0
	}

	var cred models.SessionCredential
	err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
		var err error
		cred, err = s.provider.CreateSessionCredential(ctx, rec.UserID, rec.Name, ttl)
		return err
	})
	if err != nil {
		s.releaseClaim(ctx, repo, rec.ID, claimID)
		return "", err
	}

	stored, err := repo.UpdateCredential(ctx, rec.ID, claimID, cred.Ref, cred.BearerToken)
	if err != nil || !stored {
		// The credential will never be handed out; do not leave it alive.
		s.revokeOrphan(ctx, cred.Ref)
		if err != nil {
			s.releaseClaim(ctx, repo, rec.ID, claimID)
			return "", storageError(err)
		}
		s.logger.Warn(ctx, "redemption lease lost before credential was stored", "token_id", rec.ID)
		return "", errLeaseLost
	}

	s.logger.Info(ctx, "guest token redeemed", "token_id", rec.ID,
		"from", models.StateIssued, "to", models.StateRedeemed, "session_ref", cred.Ref)
	return cred.BearerToken, nil
}

func (s *Redeemer) releaseClaim(ctx context.Context, repo guesttokens.Repository, id int64, claimID string) {
	if err := repo.ReleaseClaim(context.WithoutCancel(ctx), id, claimID); err != nil {
		s.logger.Warn(ctx, "cannot release redemption lease", "token_id", id, "error", err)
	}
}

func (s *Redeemer) revokeOrphan(ctx context.Context, ref string) {
	err := callUpstream(context.WithoutCancel(ctx), s.upstreamTimeout, func(ctx context.Context) error {
		return s.provider.RevokeSessionCredential(ctx, ref)
	})
	if err != nil {
		s.logger.Warn(ctx, "cannot revoke orphaned session credential", "session_ref", ref, "error", err)
	}
}
