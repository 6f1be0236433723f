// Package guesttokens declares the persistence contract for issued guest
// tokens and its SQL implementation.
package guesttokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
)

// Repository is a plain persistence gateway. It holds no business rules
// beyond the conditional writes that make first redemption linearizable.
type Repository interface {
	// Create inserts t with empty credential fields and sets t.ID.
	Create(ctx context.Context, t *models.GuestToken) error

	// GetBySignedToken returns common.ErrorNotFound when absent.
	GetBySignedToken(ctx context.Context, signedToken string) (*models.GuestToken, error)

	// GetByID returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id int64) (*models.GuestToken, error)

	// ListAll returns every record ordered by id.
	ListAll(ctx context.Context) ([]*models.GuestToken, error)

	// Claim takes the redemption lease on an unredeemed record. It succeeds
	// only if no credential is stored and no unexpired lease is held.
	Claim(ctx context.Context, id int64, claimID string, now time.Time, lease time.Duration) (bool, error)

	// UpdateCredential stores the credential pair if, and only if, the
	// record is still unredeemed and claimID holds the lease. The lease is
	// cleared in the same statement.
	UpdateCredential(ctx context.Context, id int64, claimID string, ref, bearerToken string) (bool, error)

	// ReleaseClaim drops the lease held by claimID, if it still holds it.
	ReleaseClaim(ctx context.Context, id int64, claimID string) error

	// Delete removes the record only while its credential ref still equals
	// ref ('' for an unredeemed record). It reports whether a row was
	// deleted; false means the record is gone or was redeemed meanwhile.
	Delete(ctx context.Context, id int64, ref string) (bool, error)
}
