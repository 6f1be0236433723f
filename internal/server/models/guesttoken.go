// Package models defines server-side data models persisted in the database.
package models

import "time"

// GuestTokenState is derived from the stored credential fields; it is never
// persisted on its own.
type GuestTokenState string

const (
	// StateIssued: signed and recorded, no session credential yet.
	StateIssued GuestTokenState = "ISSUED"
	// StateRedeemed: the first redemption stored a session credential.
	StateRedeemed GuestTokenState = "REDEEMED"
)

// GuestToken is a row of the guest_tokens table.
type GuestToken struct {
	ID     int64
	UserID string
	Name   string

	// StartAt and EndAt bound the redemption window, both in UTC.
	StartAt time.Time
	EndAt   time.Time

	// SessionCredentialRef and SessionBearerToken are set together once,
	// on the first successful redemption. Empty means unset.
	SessionCredentialRef string
	SessionBearerToken   string

	// SignedToken is the RS256 guest token and the lookup key.
	SignedToken string

	CreatedAt time.Time
}

// State reports ISSUED or REDEEMED.
func (t *GuestToken) State() GuestTokenState {
	if t.SessionCredentialRef != "" {
		return StateRedeemed
	}
	return StateIssued
}

// IsUsed reports whether the token was exchanged for a session credential.
func (t *GuestToken) IsUsed() bool {
	return t.State() == StateRedeemed
}

// ExpiredAt reports whether the window closed strictly before now.
func (t *GuestToken) ExpiredAt(now time.Time) bool {
	return t.EndAt.Before(now)
}

// Remaining returns the time left in the window, truncated to whole seconds.
// It is negative once the window has closed.
func (t *GuestToken) Remaining(now time.Time) time.Duration {
	return t.EndAt.Sub(now).Truncate(time.Second)
}
