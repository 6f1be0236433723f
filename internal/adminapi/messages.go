// Package adminapi defines the admin channel contract shared by the server
// and the CLI: message types, the JSON codec and the gRPC service
// descriptor for guestkeeper.admin.AdminService.
//
// There is no .proto file and no generated code. Messages are plain Go
// structs marshaled by the JSON codec registered under content-subtype
// "json", and the service descriptor, handlers and client are written by
// hand in the shape protoc-gen-go-grpc would produce. Changing the contract
// means editing this package on both ends.
package adminapi

import "time"

type User struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
	Name     string `json:"name"`
	IsOwner  bool   `json:"is_owner"`
	IsActive bool   `json:"is_active"`
}

// Token is a live guest token. Remaining is in seconds.
type Token struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SignedToken string    `json:"signed_token"`
	StartAt     time.Time `json:"start_date"`
	EndAt       time.Time `json:"end_date"`
	Remaining   int64     `json:"remaining"`
	IsUsed      bool      `json:"is_used"`
}

type UserTokens struct {
	User   User    `json:"user"`
	Tokens []Token `json:"tokens"`
}

type ListUsersAndTokensRequest struct{}

type ListUsersAndTokensResponse struct {
	Users []UserTokens `json:"users"`
}

type CreateTokenRequest struct {
	UserID             string `json:"user_id"`
	Name               string `json:"name"`
	StartOffsetMinutes int    `json:"start_offset_minutes"`
	TTLMinutes         int    `json:"ttl_minutes"`
}

type CreateTokenResponse struct {
	SignedToken string `json:"signed_token"`
}

type DeleteTokenRequest struct {
	TokenID int64 `json:"token_id"`
}

type DeleteTokenResponse struct {
	OK bool `json:"ok"`
}

type CreateUserRequest struct {
	UserName string `json:"username"`
	Name     string `json:"name"`
}

type CreateUserResponse struct {
	User User `json:"user"`
}
