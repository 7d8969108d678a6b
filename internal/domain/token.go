package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiredAt reports whether the bearer token is unusable as of now.
// Staleness is decided by the exp claim embedded in the token itself; a token
// with a missing or unparsable claim is treated as expired.
func TokenExpiredAt(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return now.After(exp.Time)
}

func TokenExpired(token string) bool {
	return TokenExpiredAt(token, time.Now())
}
