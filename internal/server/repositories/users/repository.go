// Package users declares the repository contract for identities known to the
// local session provider.
package users

import (
	"context"

	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}
