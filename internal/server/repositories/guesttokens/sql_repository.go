package guesttokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
)

const selectColumns = `id, user_id, name, start_at, end_at, session_credential_ref, session_bearer_token, signed_token, created_at`

// SQLRepository implements Repository over dbx.DBTX for both PostgreSQL and
// SQLite. Queries are written with $N placeholders and rebound per dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

func (r *SQLRepository) Create(ctx context.Context, t *models.GuestToken) error {
	query := `
		INSERT INTO guest_tokens (user_id, name, start_at, end_at, signed_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, r.q(query),
		t.UserID, t.Name, t.StartAt.UTC(), t.EndAt.UTC(), t.SignedToken, t.CreatedAt.UTC()).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetBySignedToken(ctx context.Context, signedToken string) (*models.GuestToken, error) {
	query := `SELECT ` + selectColumns + ` FROM guest_tokens WHERE signed_token = $1`
	return r.getOne(ctx, query, signedToken)
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.GuestToken, error) {
	query := `SELECT ` + selectColumns + ` FROM guest_tokens WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.GuestToken, error) {
	t, err := scanGuestToken(r.db.QueryRowContext(ctx, r.q(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) ListAll(ctx context.Context) ([]*models.GuestToken, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM guest_tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.GuestToken
	for rows.Next() {
		t, err := scanGuestToken(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Claim(ctx context.Context, id int64, claimID string, now time.Time, lease time.Duration) (bool, error) {
	query := `
		UPDATE guest_tokens
		SET claim_id = $1, claim_expires_at = $2
		WHERE id = $3
		  AND session_credential_ref = ''
		  AND (claim_id = '' OR claim_expires_at < $4)
	`
	nowMs := now.UnixMilli()
	return r.execAffected(ctx, query, claimID, nowMs+lease.Milliseconds(), id, nowMs)
}

func (r *SQLRepository) UpdateCredential(ctx context.Context, id int64, claimID string, ref, bearerToken string) (bool, error) {
	query := `
		UPDATE guest_tokens
		SET session_credential_ref = $1, session_bearer_token = $2, claim_id = '', claim_expires_at = 0
		WHERE id = $3
		  AND claim_id = $4
		  AND session_credential_ref = ''
	`
	return r.execAffected(ctx, query, ref, bearerToken, id, claimID)
}

func (r *SQLRepository) ReleaseClaim(ctx context.Context, id int64, claimID string) error {
	query := `
		UPDATE guest_tokens
		SET claim_id = '', claim_expires_at = 0
		WHERE id = $1 AND claim_id = $2
	`
	if _, err := r.execAffected(ctx, query, id, claimID); err != nil {
		return err
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64, ref string) (bool, error) {
	return r.execAffected(ctx, `DELETE FROM guest_tokens WHERE id = $1 AND session_credential_ref = $2`, id, ref)
}

func (r *SQLRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(query), args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuestToken(s scanner) (*models.GuestToken, error) {
	t := &models.GuestToken{}
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.StartAt, &t.EndAt,
		&t.SessionCredentialRef, &t.SessionBearerToken, &t.SignedToken, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.StartAt = t.StartAt.UTC()
	t.EndAt = t.EndAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
