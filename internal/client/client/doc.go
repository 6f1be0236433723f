// Package client talks to the guestkeeper admin channel.
//
// GRPCClient wraps adminapi.AdminServiceClient. When an admin secret is
// configured, every call carries a freshly minted short-lived admin token
// in the "authorization" metadata. gRPC status codes are mapped to the
// sentinel errors of this package so callers can match them with errors.Is.
package client
