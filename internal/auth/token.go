package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MinTTL is the smallest accepted token lifetime; token timestamps have second precision.
const MinTTL = time.Second

// TokenService issues, parses and validates HS512 tokens and tracks revocations.
// It is built once at startup; the secret and TTL never change afterwards.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	revoked *RevocationRegistry
	parser  *jwt.Parser
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now as the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger for validation diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTokenService builds a service. It fails with ErrConfiguration when the
// secret is empty or the TTL is shorter than MinTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is empty", ErrConfiguration)
	}
	if ttl < MinTTL {
		return nil, fmt.Errorf("%w: ttl %s is shorter than %s", ErrConfiguration, ttl, MinTTL)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	s := &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
		revoked: NewRevocationRegistry(),
		parser:  parser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject carrying the given custom claims.
// iat is truncated to the second and exp is iat plus the TTL, so exp never passes issuance plus TTL.
func (s *TokenService) Issue(subject string, claims map[string]any) (string, error) {
	token, _, err := s.issue(subject, claims)
	return token, err
}

// IssueForPrincipal issues a token carrying the principal's email claim and
// returns its expiry alongside it.
func (s *TokenService) IssueForPrincipal(subject, email string) (string, time.Time, error) {
	return s.issue(subject, map[string]any{ClaimEmail: email})
}

func (s *TokenService) issue(subject string, custom map[string]any) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}

	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl).Truncate(time.Second)

	claims, err := buildMapClaims(subject, uuid.NewString(), custom, issuedAt, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseClaims verifies the token signature and decodes its claims.
// Expiry and revocation are not evaluated.
func (s *TokenService) ParseClaims(token string) (*ClaimSet, error) {
	claims := jwt.MapClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claimSetFromMap(claims)
}

// IsExpired reports whether the token's expiry has been reached.
func (s *TokenService) IsExpired(token string) (bool, error) {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return false, err
	}
	return expired(claims, s.now()), nil
}

// IsRevoked reports whether the exact token string has been invalidated.
func (s *TokenService) IsRevoked(token string) bool {
	return s.revoked.IsRevoked(token)
}

// Invalidate revokes token. Tokens that cannot be parsed are kept for one TTL,
// the longest any token of this service can live.
func (s *TokenService) Invalidate(token string) {
	expiresAt := s.now().Add(s.ttl)
	if claims, err := s.ParseClaims(token); err == nil {
		expiresAt = claims.ExpiresAt
	}
	s.revoked.Revoke(token, expiresAt)
}

// SweepRevocations drops revocation entries for tokens that have already expired.
func (s *TokenService) SweepRevocations() int {
	return s.revoked.Sweep(s.now())
}

// RevokedCount returns the number of tracked revocation entries.
func (s *TokenService) RevokedCount() int {
	return s.revoked.Len()
}

// Check runs every validation step and reports the first failure.
// On subject, expiry or revocation failures the parsed claims are returned with the error.
func (s *TokenService) Check(token, expectedSubject string) (*ClaimSet, error) {
	now := s.now()

	claims, err := s.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject != expectedSubject {
		return claims, fmt.Errorf("%w: got %q", ErrSubjectMismatch, claims.Subject)
	}
	if expired(claims, now) {
		return claims, fmt.Errorf("%w: at %s", ErrTokenExpired, claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if s.revoked.IsRevoked(token) {
		return claims, ErrTokenRevoked
	}
	return claims, nil
}

// Validate reports whether token is trusted for expectedSubject right now.
func (s *TokenService) Validate(token, expectedSubject string) bool {
	_, err := s.Check(token, expectedSubject)
	if err == nil {
		return true
	}

	reason := Reason(err)
	if reason == ReasonSignature {
		s.logger.Warn("token signature rejected", zap.Error(err))
	} else {
		s.logger.Debug("token rejected", zap.String("reason", reason), zap.Error(err))
	}
	return false
}

func expired(claims *ClaimSet, now time.Time) bool {
	return !now.Before(claims.ExpiresAt)
}
