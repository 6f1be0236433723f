// Package common contains shared constants and sentinel errors used across
// guestkeeper components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the admin
// bearer token on the admin channel.
const AuthorizationHeaderName = "authorization"

// GuestLoginPath is the public route a guest opens to redeem a token.
const GuestLoginPath = "/guest-mode/login"

// GuestTokenQueryParam is the query parameter holding the signed guest token.
const GuestTokenQueryParam = "token"
