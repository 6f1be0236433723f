package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/dmitrijs2005/guestkeeper/internal/server/models"
	"github.com/gin-gonic/gin"
)

// SessionVerifier is implemented by providers that can check their own
// bearer tokens, such as identity.LocalProvider.
type SessionVerifier interface {
	VerifyBearer(ctx context.Context, bearer string) (*models.Session, error)
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Label     string    `json:"label"`
	ExpiresAt time.Time `json:"expires_at"`
}

// sessionHandler reports the session behind an "Authorization: Bearer"
// header. Revoked and expired sessions answer 401.
func (h *Handler) sessionHandler(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || bearer == "" {
			c.String(http.StatusUnauthorized, "missing bearer token")
			return
		}

		s, err := v.VerifyBearer(c.Request.Context(), bearer)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrExpiredSignature):
				c.String(http.StatusUnauthorized, "expired token")
			case errors.Is(err, common.ErrInvalidToken):
				c.String(http.StatusUnauthorized, "invalid token")
			default:
				h.logger.Error(c.Request.Context(), "session check failed", "error", err)
				c.String(http.StatusInternalServerError, "internal server error")
			}
			return
		}

		c.JSON(http.StatusOK, sessionResponse{
			SessionID: s.ID,
			UserID:    s.UserID,
			Label:     s.Label,
			ExpiresAt: s.ExpiresAt.UTC(),
		})
	}
}
