// Package common defines shared constants and sentinel errors used across
// the server, the admin channel and the CLI. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")

	// Key manager errors. Both are fatal at startup.
	ErrKeyStorage = errors.New("key storage error")
	ErrKeyFormat  = errors.New("key format error")

	// Issuance errors.
	ErrInvalidWindow  = errors.New("invalid validity window")
	ErrKeyUnavailable = errors.New("signing key unavailable")
	ErrStorage        = errors.New("storage error")

	// Redemption errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredSignature = errors.New("expired token")
	ErrNotYetValid      = errors.New("token not yet valid")
	ErrWindowExpired    = errors.New("token window expired")
	ErrTokenNotFound    = errors.New("token not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrUpstreamTimeout  = errors.New("identity provider timeout")
)
