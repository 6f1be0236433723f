// Package auth signs and verifies the JWTs the server deals in: RS256 guest
// tokens carrying a validity window, HS256 session bearer tokens minted by
// the local identity provider and HS256 admin tokens for the admin channel.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GuestClaims is the payload of a guest token. The window bounds are
// RFC 3339 timestamps in UTC.
type GuestClaims struct {
	jwt.RegisteredClaims
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

// Window is the decoded validity window of a guest token.
type Window struct {
	StartAt time.Time
	EndAt   time.Time
}

// SignGuestToken signs the window with key. The signature itself expires
// grace after the window closes, so a token presented shortly after endAt
// still decodes and is rejected by the window check instead.
func SignGuestToken(key *rsa.PrivateKey, w Window, grace time.Duration, now time.Time) (string, error) {
	if key == nil {
		return "", common.ErrKeyUnavailable
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, GuestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(w.EndAt.Add(grace)),
		},
		StartAt: w.StartAt.UTC().Format(time.RFC3339),
		EndAt:   w.EndAt.UTC().Format(time.RFC3339),
	})

	return token.SignedString(key)
}

// ParseGuestToken verifies the signature with key and returns the window.
// It fails with common.ErrExpiredSignature when the signature has lapsed
// and common.ErrInvalidToken for anything malformed, unsigned or tampered.
func ParseGuestToken(tokenString string, key *rsa.PublicKey, now time.Time) (Window, error) {
	if key == nil {
		return Window{}, common.ErrKeyUnavailable
	}

	claims := &GuestClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Window{}, common.ErrExpiredSignature
		}
		return Window{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return Window{}, common.ErrInvalidToken
	}

	start, err := time.Parse(time.RFC3339, claims.StartAt)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start_at: %w", common.ErrInvalidToken, err)
	}
	end, err := time.Parse(time.RFC3339, claims.EndAt)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end_at: %w", common.ErrInvalidToken, err)
	}

	return Window{StartAt: start.UTC(), EndAt: end.UTC()}, nil
}

// Claims is the payload of HS256 session and admin tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid,omitempty"`
}

// GenerateToken signs an HS256 token for subject valid until expiresAt.
// The id claim is the caller's reference for the token (session id).
func GenerateToken(id, subject string, secretKey []byte, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: subject,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies an HS256 token at now and returns its claims.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrExpiredSignature
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
