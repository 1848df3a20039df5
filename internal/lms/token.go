package lms

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryLeeway is subtracted from the token's lifetime so callers see
// "expired" shortly before the server would start rejecting it.
const expiryLeeway = 60 * time.Second

// TokenExpired reports whether the access token's embedded expiry claim is
// within the leeway of the current time. Malformed or absent tokens count as
// expired. This check is advisory; the authoritative signal remains the
// server's 401 response, which the client handles reactively.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	expiresAt, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return true
	}
	return expiresAt.Before(now.Add(expiryLeeway))
}
