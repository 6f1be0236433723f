package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// LocalProvider keeps users and sessions in the users and sessions tables.
// Session bearer tokens are HS256 JWTs whose id claim is the session id, so
// deleting the session row revokes the token.
type LocalProvider struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	secret      []byte
	clock       clockx.Clock
	logger      logging.Logger
}

func NewLocalProvider(db *sql.DB, rm repomanager.RepositoryManager, secret []byte, clock clockx.Clock, logger logging.Logger) *LocalProvider {
	return &LocalProvider{
		db:          db,
		repomanager: rm,
		secret:      secret,
		clock:       clock,
		logger:      logger.With("module", "identity"),
	}
}

func (p *LocalProvider) CreateSessionCredential(ctx context.Context, userID, label string, ttl time.Duration) (models.SessionCredential, error) {
	if ttl < 0 {
		ttl = 0
	}
	now := p.clock.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Label:     label,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	bearer, err := auth.GenerateToken(session.ID, userID, p.secret, session.ExpiresAt)
	if err != nil {
		return models.SessionCredential{}, fmt.Errorf("sign session token: %w", err)
	}

	err = dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := p.getUser(ctx, tx, userID); err != nil {
			return err
		}
		return p.repomanager.Sessions(tx).Create(ctx, session)
	})
	if err != nil {
		return models.SessionCredential{}, err
	}

	p.logger.Info(ctx, "session created", "session_id", session.ID, "user_id", userID, "expires_at", session.ExpiresAt)
	return models.SessionCredential{Ref: session.ID, BearerToken: bearer}, nil
}

func (p *LocalProvider) RevokeSessionCredential(ctx context.Context, ref string) error {
	if err := p.repomanager.Sessions(p.db).Delete(ctx, ref); err != nil {
		return err
	}
	p.logger.Info(ctx, "session revoked", "session_id", ref)
	return nil
}

func (p *LocalProvider) ListUsers(ctx context.Context) ([]*models.User, error) {
	return p.repomanager.Users(p.db).List(ctx)
}

func (p *LocalProvider) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return p.getUser(ctx, p.db, userID)
}

func (p *LocalProvider) getUser(ctx context.Context, db dbx.DBTX, userID string) (*models.User, error) {
	u, err := p.repomanager.Users(db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// CreateUser adds an active user.
func (p *LocalProvider) CreateUser(ctx context.Context, userName, name string, isOwner bool) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrInvalidArgument)
	}
	if name == "" {
		name = userName
	}

	u, err := p.repomanager.Users(p.db).Create(ctx, &models.User{
		ID:        uuid.NewString(),
		UserName:  userName,
		Name:      name,
		IsOwner:   isOwner,
		IsActive:  true,
		CreatedAt: p.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "user created", "user_id", u.ID, "username", u.UserName)
	return u, nil
}

// VerifyBearer checks a session bearer token and returns its session. A
// token whose session was revoked is reported as common.ErrInvalidToken.
func (p *LocalProvider) VerifyBearer(ctx context.Context, bearer string) (*models.Session, error) {
	claims, err := auth.ParseToken(bearer, p.secret, p.clock.Now())
	if err != nil {
		return nil, err
	}

	s, err := p.repomanager.Sessions(p.db).Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if s.UserID != claims.UserID {
		return nil, common.ErrInvalidToken
	}
	if !s.ExpiresAt.After(p.clock.Now()) {
		return nil, common.ErrExpiredSignature
	}
	return s, nil
}
