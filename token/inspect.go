package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspector reads claims from issued tokens without verifying them. A zero
// Inspector is usable; FallbackTTL covers opaque (non-JWT) tokens.
type Inspector struct {
	// Leeway shifts the reported expiry earlier so a session is treated as
	// expired slightly before the token actually lapses.
	Leeway time.Duration
	// FallbackTTL is assumed when the token carries no readable exp claim.
	FallbackTTL time.Duration

	Now func() time.Time
}

var unverifiedParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// ExpiresAt reports the token's expiry instant. The second return is false
// when the token is opaque or carries no exp claim.
func (i Inspector) ExpiresAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := unverifiedParser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time.Add(-i.Leeway), true
}

// SessionExpiry resolves the expiry to persist on a new session: the token's
// exp claim when readable, otherwise issuedAt plus the fallback lifetime.
func (i Inspector) SessionExpiry(raw string, issuedAt time.Time) time.Time {
	if at, ok := i.ExpiresAt(raw); ok {
		return at
	}
	ttl := i.FallbackTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return issuedAt.Add(ttl)
}

// IsExpired reports whether the token should be considered expired now.
// Opaque tokens are never reported expired here; the fallback lifetime on
// the stored session governs them instead.
func (i Inspector) IsExpired(raw string) bool {
	at, ok := i.ExpiresAt(raw)
	if !ok {
		return false
	}
	now := i.Now
	if now == nil {
		now = time.Now
	}
	return !now().Before(at)
}
