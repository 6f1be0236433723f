// Package identity is the boundary to the identity/session provider that
// owns users and mints long-lived session credentials. LocalProvider is a
// self-contained implementation backed by the server's own database.
package identity

import (
	"context"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
)

// Provider creates and revokes session credentials for users.
//
// GetUser returns common.ErrUserNotFound when the user does not exist.
// RevokeSessionCredential of an unknown ref is not an error.
type Provider interface {
	CreateSessionCredential(ctx context.Context, userID, label string, ttl time.Duration) (models.SessionCredential, error)
	RevokeSessionCredential(ctx context.Context, ref string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}
