package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
)

// MaxTTLMinutes caps a guest token's lifetime at ten years, far below the
// point where the window overflows time.Duration.
const MaxTTLMinutes = 10 * 365 * 24 * 60

// Issuer signs guest tokens and records them.
type Issuer struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	keys            KeySource
	provider        identity.Provider
	clock           clockx.Clock
	signatureGrace  time.Duration
	upstreamTimeout time.Duration
	logger          logging.Logger
}

func NewIssuer(db *sql.DB, rm repomanager.RepositoryManager, keys KeySource, provider identity.Provider,
	clock clockx.Clock, cfg *config.Config, logger logging.Logger) *Issuer {
	return &Issuer{
		db:              db,
		repomanager:     rm,
		keys:            keys,
		provider:        provider,
		clock:           clock,
		signatureGrace:  cfg.SignatureGrace,
		upstreamTimeout: cfg.UpstreamTimeout,
		logger:          logger.With("module", "issuer"),
	}
}

// Issue creates a guest token for userID valid from now+startOffsetMinutes
// until now+ttlMinutes. The token is returned only after its record is
// stored.
func (s *Issuer) Issue(ctx context.Context, userID, name string, startOffsetMinutes, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 || ttlMinutes > MaxTTLMinutes || startOffsetMinutes < 0 || ttlMinutes <= startOffsetMinutes {
		return "", fmt.Errorf("%w: start offset %d min, ttl %d min", common.ErrInvalidWindow, startOffsetMinutes, ttlMinutes)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: token name is required", common.ErrInvalidArgument)
	}

	key := s.keys.PrivateKey()
	if key == nil {
		return "", common.ErrKeyUnavailable
	}

	if err := callUpstream(ctx, s.upstreamTimeout, func(ctx context.Context) error {
		_, err := s.provider.GetUser(ctx, userID)
		return err
	}); err != nil {
		return "", err
	}

	// Claims carry whole seconds; the record must hold the same instants.
	now := s.clock.Now().UTC().Truncate(time.Second)
	w := auth.Window{
		StartAt: now.Add(time.Duration(startOffsetMinutes) * time.Minute),
		EndAt:   now.Add(time.Duration(ttlMinutes) * time.Minute),
	}
	if !w.EndAt.After(w.StartAt) {
		return "", fmt.Errorf("%w: window %s..%s", common.ErrInvalidWindow, w.StartAt, w.EndAt)
	}

	signed, err := auth.SignGuestToken(key, w, s.signatureGrace, now)
	if err != nil {
		if errors.Is(err, common.ErrKeyUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("sign guest token: %w", err)
	}

	rec := &models.GuestToken{
		UserID:      userID,
		Name:        name,
		StartAt:     w.StartAt,
		EndAt:       w.EndAt,
		SignedToken: signed,
		CreatedAt:   now,
	}
	if err := s.repomanager.GuestTokens(s.db).Create(ctx, rec); err != nil {
		return "", storageError(err)
	}

	s.logger.Info(ctx, "guest token issued", "token_id", rec.ID, "user_id", userID,
		"start_at", w.StartAt, "end_at", w.EndAt)
	return signed, nil
}
