package models

import "time"

// User is an identity known to the session provider.
type User struct {
	ID        string
	UserName  string
	Name      string
	IsOwner   bool
	IsActive  bool
	CreatedAt time.Time
}

// Session is a long-lived session credential minted for a user.
type Session struct {
	ID        string
	UserID    string
	Label     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionCredential is what the provider hands back when a session is
// created: the session id (kept for revocation) and the bearer token given
// to the guest.
type SessionCredential struct {
	Ref         string
	BearerToken string
}
