package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when the input is not a structurally valid JWT
// or carries no usable claims.
var ErrMalformed = errors.New("malformed token")

// Claims is the unverified subset of an access token this client cares
// about. ExpiresAt is zero when the token carries no exp claim.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExpiresWithin reports whether the token expires within d of now. Tokens
// without an exp claim never report as expiring.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(c.ExpiresAt)
}

// Expired reports whether now is at or past the token's expiry. A token is
// valid only strictly before its embedded expiry.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode extracts registered claims from raw without signature
// verification or expiry validation.
func Decode(raw string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(raw, &rc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := &Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	return out, nil
}
