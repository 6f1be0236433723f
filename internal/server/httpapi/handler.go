// Package httpapi serves the public guest redemption endpoint over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	LoginPath   = common.GuestLoginPath
	SessionPath = "/guest-mode/session"
)

// Redeemer exchanges a presented guest token for a session bearer token.
type Redeemer interface {
	Redeem(ctx context.Context, presented string) (*services.HandoffPayload, error)
}

type Handler struct {
	redeemer Redeemer
	logger   logging.Logger
}

func NewHandler(r Redeemer, logger logging.Logger) *Handler {
	return &Handler{redeemer: r, logger: logger.With("module", "httpapi")}
}

// Login handles GET /guest-mode/login?token=.
func (h *Handler) Login(c *gin.Context) {
	token := c.Query(common.GuestTokenQueryParam)
	if token == "" {
		c.String(http.StatusBadRequest, "missing token")
		return
	}

	payload, err := h.redeemer.Redeem(c.Request.Context(), token)
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error(c.Request.Context(), "guest login failed", "status", code, "error", err)
		} else {
			h.logger.Debug(c.Request.Context(), "guest login rejected", "status", code, "error", err)
		}
		c.String(code, msg)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, handoffTemplate, gin.H{"AccessToken": payload.BearerToken})
}

// statusFor maps a redemption error to a status code and a plain-text body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrExpiredSignature):
		return http.StatusUnauthorized, "expired token"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, common.ErrNotYetValid), errors.Is(err, common.ErrWindowExpired):
		return http.StatusForbidden, "not yet valid or expired"
	case errors.Is(err, common.ErrTokenNotFound):
		return http.StatusNotFound, "token not found"
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, common.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "identity provider timeout"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
