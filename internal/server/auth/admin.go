package auth

import (
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/common"
	"github.com/google/uuid"
)

// AdminSubject is the subject of tokens accepted on the admin channel.
const AdminSubject = "admin"

// GenerateAdminToken mints a short-lived HS256 admin token.
func GenerateAdminToken(secretKey []byte, now time.Time, ttl time.Duration) (string, error) {
	return GenerateToken(uuid.NewString(), AdminSubject, secretKey, now.Add(ttl))
}

// VerifyAdminToken accepts only unexpired admin tokens signed with secretKey.
func VerifyAdminToken(tokenString string, secretKey []byte, now time.Time) error {
	claims, err := ParseToken(tokenString, secretKey, now)
	if err != nil {
		return err
	}
	if claims.Subject != AdminSubject {
		return common.ErrInvalidToken
	}
	return nil
}
