package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/repository"
)

var (
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPrincipalInactive  = errors.New("principal inactive")
)

// ReasonUnknownPrincipal is reported when a valid token names a principal that no longer exists or is inactive.
const ReasonUnknownPrincipal = "unknown_principal"

// SessionService coordinates login, bearer authentication and logout around the TokenService.
type SessionService struct {
	principals repository.PrincipalRepository
	tokens     *auth.TokenService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// SessionDependencies encapsulates collaborators for the session service.
type SessionDependencies struct {
	Principals repository.PrincipalRepository
	Tokens     *auth.TokenService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &SessionService{
		principals: deps.Principals,
		tokens:     deps.Tokens,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Login checks credentials with the principal directory and issues a token.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.IssuedToken, error) {
	principal, err := s.principals.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !principal.Active {
		return nil, ErrPrincipalInactive
	}
	if err := auth.ComparePassword(principal.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.IssueForPrincipal(principal.Username, principal.Email)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordIssued()
	s.publish(ctx, events.EventTokenIssued, principal.Username, events.TokenIssuedPayload{ExpiresAt: expiresAt})

	return &domain.IssuedToken{Token: token, Subject: principal.Username, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its principal. The subject is read from the
// token, looked up, and the token is then validated against that principal.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*domain.Principal, *auth.ClaimSet, error) {
	claims, err := s.tokens.ParseClaims(token)
	if err != nil {
		s.reject(ctx, "", auth.Reason(err), err)
		return nil, nil, err
	}

	principal, err := s.principals.GetByUsername(ctx, claims.Subject)
	if err == nil && !principal.Active {
		err = ErrPrincipalInactive
	}
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) || errors.Is(err, ErrPrincipalInactive) {
			s.reject(ctx, claims.Subject, ReasonUnknownPrincipal, err)
			return nil, nil, fmt.Errorf("%w: %w", auth.ErrUnknownPrincipal, err)
		}
		return nil, nil, fmt.Errorf("lookup principal: %w", err)
	}

	claims, err = s.tokens.Check(token, principal.Username)
	if err != nil {
		s.reject(ctx, principal.Username, auth.Reason(err), err)
		return nil, nil, err
	}

	s.metrics.RecordValidation(auth.ReasonOK)
	return principal, claims, nil
}

// Logout revokes the presented token until it expires.
func (s *SessionService) Logout(ctx context.Context, token string, claims *auth.ClaimSet) {
	s.tokens.Invalidate(token)
	s.metrics.RecordRevoked()

	payload := events.TokenRevokedPayload{}
	subject := ""
	if claims != nil {
		payload = events.TokenRevokedPayload{TokenID: claims.ID, ExpiresAt: claims.ExpiresAt}
		subject = claims.Subject
	}
	s.publish(ctx, events.EventTokenRevoked, subject, payload)
}

// Introspect reports whether token is valid for subject and, if not, why.
// An empty subject means the token's own subject. Rejections are published like
// those from Authenticate.
func (s *SessionService) Introspect(ctx context.Context, token, subject string) domain.TokenStatus {
	if subject == "" {
		if parsed, err := s.tokens.ParseClaims(token); err == nil {
			subject = parsed.Subject
		}
	}

	claims, err := s.tokens.Check(token, subject)
	reason := auth.Reason(err)
	if err != nil {
		s.reject(ctx, subject, reason, err)
	} else {
		s.metrics.RecordValidation(reason)
	}

	status := domain.TokenStatus{Active: err == nil, Reason: reason}
	if claims != nil {
		status.Subject = claims.Subject
		status.Email = claims.Email()
		status.IssuedAt = claims.IssuedAt
		status.ExpiresAt = claims.ExpiresAt
	}
	return status
}

// SweepRevocations evicts revocation entries of expired tokens.
func (s *SessionService) SweepRevocations() int {
	removed := s.tokens.SweepRevocations()
	s.metrics.RecordSwept(removed)
	return removed
}

func (s *SessionService) reject(ctx context.Context, subject, reason string, err error) {
	s.metrics.RecordValidation(reason)
	if reason == auth.ReasonSignature {
		s.logger.Warn("token signature rejected", zap.String("subject", subject), zap.Error(err))
	}
	s.publish(ctx, events.EventTokenRejected, subject, events.TokenRejectedPayload{Reason: reason})
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(fmt.Errorf("publish: %w", err)))
	}
}
