// Package sessions declares the repository contract for long-lived session
// credentials minted by the local session provider.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
)

type Repository interface {
	// Create stores a new session row.
	Create(ctx context.Context, s *models.Session) error

	// Find returns common.ErrorNotFound when the session is absent.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
