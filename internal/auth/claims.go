package auth

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ClaimEmail is the custom claim set by IssueForPrincipal.
const ClaimEmail = "email"

// maxNumericDate is 9999-12-31T23:59:59Z. Larger timestamps overflow when converted to time.Time.
const maxNumericDate = 253402300799

var reservedClaims = map[string]struct{}{
	"sub": {},
	"iat": {},
	"exp": {},
	"jti": {},
}

// ClaimSet is the decoded payload of a token.
type ClaimSet struct {
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Custom holds every non-registered claim with JSON semantics:
	// strings stay strings, numbers decode as float64.
	Custom map[string]any
}

// Email returns the email claim, or an empty string when absent.
func (c *ClaimSet) Email() string {
	v, _ := c.String(ClaimEmail)
	return v
}

// String returns a custom claim as a string.
func (c *ClaimSet) String(name string) (string, bool) {
	v, ok := c.Custom[name].(string)
	return v, ok
}

// Float returns a numeric custom claim.
func (c *ClaimSet) Float(name string) (float64, bool) {
	v, ok := c.Custom[name].(float64)
	return v, ok
}

func buildMapClaims(subject, id string, custom map[string]any, issuedAt, expiresAt time.Time) (jwt.MapClaims, error) {
	claims := make(jwt.MapClaims, len(custom)+4)
	for name, value := range custom {
		if _, reserved := reservedClaims[name]; reserved {
			return nil, fmt.Errorf("%w: %q", ErrReservedClaim, name)
		}
		claims[name] = value
	}
	claims["sub"] = subject
	claims["jti"] = id
	claims["iat"] = jwt.NewNumericDate(issuedAt)
	claims["exp"] = jwt.NewNumericDate(expiresAt)
	return claims, nil
}

func claimSetFromMap(claims jwt.MapClaims) (*ClaimSet, error) {
	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformedToken)
	}

	for _, name := range []string{"exp", "iat"} {
		if !numericDateInRange(claims[name]) {
			return nil, fmt.Errorf("%w: %s claim out of range", ErrMalformedToken, name)
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	set := &ClaimSet{
		Subject:   subject,
		ExpiresAt: exp.Time,
		Custom:    make(map[string]any, len(claims)),
	}
	if iat != nil {
		set.IssuedAt = iat.Time
	}
	if id, ok := claims["jti"].(string); ok {
		set.ID = id
	}
	for name, value := range claims {
		if _, reserved := reservedClaims[name]; reserved {
			continue
		}
		set.Custom[name] = value
	}
	return set, nil
}

func numericDateInRange(v any) bool {
	var seconds float64
	switch n := v.(type) {
	case float64:
		seconds = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return false
		}
		seconds = parsed
	default:
		return true
	}
	return !math.IsNaN(seconds) && math.Abs(seconds) <= maxNumericDate
}
