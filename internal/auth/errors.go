package auth

import "errors"

var (
	// ErrConfiguration is returned when the service cannot start with the given secret or TTL.
	ErrConfiguration = errors.New("invalid token configuration")
	// ErrMalformedToken is returned when a token does not decode into a compact JWS with the expected claims.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when a well-formed token fails signature verification.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned by Check for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned by Check for tokens present in the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrSubjectMismatch is returned by Check when the token belongs to another subject.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	// ErrUnknownPrincipal is returned by authenticators when a well-formed token names a principal that is missing or inactive.
	ErrUnknownPrincipal = errors.New("token principal unknown")

	ErrEmptySubject  = errors.New("subject is required")
	ErrReservedClaim = errors.New("reserved claim name")
)

// rejectsToken reports whether err says the presented token is not trusted,
// as opposed to a failure of the authenticator itself.
func rejectsToken(err error) bool {
	for _, target := range []error{
		ErrMalformedToken,
		ErrInvalidSignature,
		ErrTokenExpired,
		ErrTokenRevoked,
		ErrSubjectMismatch,
		ErrUnknownPrincipal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reason codes reported by Reason.
const (
	ReasonOK              = "ok"
	ReasonMalformed       = "malformed"
	ReasonSignature       = "invalid_signature"
	ReasonExpired         = "expired"
	ReasonRevoked         = "revoked"
	ReasonSubjectMismatch = "subject_mismatch"
)

// Reason maps a validation error to a short code suitable for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, ErrInvalidSignature):
		return ReasonSignature
	case errors.Is(err, ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, ErrTokenRevoked):
		return ReasonRevoked
	case errors.Is(err, ErrSubjectMismatch):
		return ReasonSubjectMismatch
	default:
		return ReasonMalformed
	}
}
