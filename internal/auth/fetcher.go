package auth

import (
	"time"

	"github.com/tus-lockers/locker-backend/internal/utils"
)

// SessionInfo resolves the token cookie into the admin it was issued to.
type SessionInfo struct {
	Issuer *Issuer
}

func (si SessionInfo) FindSessionByToken(token string) (utils.SessionData, error) {
	claims, err := si.Issuer.Parse(token)
	if err != nil {
		return utils.SessionData{}, err
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return utils.SessionData{
		Username:  claims.Subject,
		ExpiresAt: expires,
	}, nil
}
