package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/guesttokens"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
)

// Sweeper purges guest tokens whose window has closed and revokes the
// session credentials they were exchanged for.
type Sweeper struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	provider        identity.Provider
	clock           clockx.Clock
	upstreamTimeout time.Duration
	logger          logging.Logger
}

func NewSweeper(db *sql.DB, rm repomanager.RepositoryManager, provider identity.Provider,
	clock clockx.Clock, cfg *config.Config, logger logging.Logger) *Sweeper {
	return &Sweeper{
		db:              db,
		repomanager:     rm,
		provider:        provider,
		clock:           clock,
		upstreamTimeout: cfg.UpstreamTimeout,
		logger:          logger.With("module", "sweeper"),
	}
}

// Sweep deletes every record with endAt < now and returns how many were
// deleted. Revocation is best effort: a failure is logged and the record is
// deleted anyway.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	repo := s.repomanager.GuestTokens(s.db)

	all, err := repo.ListAll(ctx)
	if err != nil {
		return 0, storageError(err)
	}

	var expired []*models.GuestToken
	for _, t := range all {
		if t.ExpiredAt(now) {
			expired = append(expired, t)
		}
	}

	removed := 0
	for _, t := range expired {
		deleted, err := s.remove(ctx, repo, t)
		if err != nil {
			return removed, storageError(err)
		}
		if deleted {
			removed++
			s.logger.Info(ctx, "expired guest token removed", "token_id", t.ID, "end_at", t.EndAt)
		}
	}
	return removed, nil
}

// remove revokes t's credential and deletes t. When a redemption stored a
// credential after t was listed, the delete misses and t is read again so
// that credential is revoked as well.
func (s *Sweeper) remove(ctx context.Context, repo guesttokens.Repository, t *models.GuestToken) (bool, error) {
	for round := 0; round < 2; round++ {
		if t.SessionCredentialRef != "" {
			ref := t.SessionCredentialRef
			err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
				return s.provider.RevokeSessionCredential(ctx, ref)
			})
			if err != nil {
				s.logger.Warn(ctx, "cannot revoke session credential of expired guest token",
					"token_id", t.ID, "session_ref", ref, "error", err)
			}
		}

		deleted, err := repo.Delete(ctx, t.ID, t.SessionCredentialRef)
		if err != nil || deleted {
			return deleted, err
		}

		t, err = repo.GetByID(ctx, t.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}
