package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/repository"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc      *SessionService
	tokens   *auth.TokenService
	metrics  *observability.Metrics
	recorded *recordedEvents
	now      time.Time
	mu       sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := auth.HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.tokens, err = auth.NewTokenService("test-secret", time.Minute, auth.WithClock(f.clock))
	require.NoError(t, err)

	principals := repository.NewStaticPrincipalRepository([]domain.Principal{
		{Username: "alice", Email: "a@x.com", PasswordHash: hash, Active: true},
		{Username: "carol", Email: "c@x.com", PasswordHash: hash, Active: false},
	})

	f.metrics = observability.NewMetrics()
	f.recorded = &recordedEvents{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventTokenIssued, events.EventTokenRevoked, events.EventTokenRejected} {
		dispatcher.Subscribe(et, f.recorded.handler)
	}

	f.svc = NewSessionService(SessionDependencies{
		Principals: principals,
		Tokens:     f.tokens,
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
	})
	return f
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", issued.Subject)
	assert.True(t, f.now.Add(time.Minute).Equal(issued.ExpiresAt))

	claims, err := f.tokens.ParseClaims(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email())
	assert.True(t, f.tokens.Validate(issued.Token, "alice"))

	_, err = f.svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "carol", "hunter2")
	assert.ErrorIs(t, err, ErrPrincipalInactive)

	assert.Equal(t, int64(1), f.metrics.Snapshot().TokensIssued)
	assert.Equal(t, []events.EventType{events.EventTokenIssued}, f.recorded.types())
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	principal, claims, err := f.svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, "alice", claims.Subject)

	f.svc.Logout(ctx, issued.Token, claims)
	_, _, err = f.svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonOK])
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonRevoked])
	assert.Equal(t, int64(1), snap.TokensRevoked)
	assert.Equal(t, []events.EventType{
		events.EventTokenIssued,
		events.EventTokenRevoked,
		events.EventTokenRejected,
	}, f.recorded.types())
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrMalformedToken)

	ghost, err := f.tokens.Issue("ghost", nil)
	require.NoError(t, err)
	_, _, err = f.svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, repository.ErrPrincipalNotFound)
	assert.ErrorIs(t, err, auth.ErrUnknownPrincipal)

	inactive, err := f.tokens.Issue("carol", nil)
	require.NoError(t, err)
	_, _, err = f.svc.Authenticate(ctx, inactive)
	assert.ErrorIs(t, err, ErrPrincipalInactive)
	assert.ErrorIs(t, err, auth.ErrUnknownPrincipal)

	issued, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	f.advance(2 * time.Minute)
	_, _, err = f.svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonMalformed])
	assert.Equal(t, int64(2), snap.Validations[ReasonUnknownPrincipal])
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonExpired])
}

func TestIntrospect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	status := f.svc.Introspect(ctx, issued.Token, "")
	assert.True(t, status.Active)
	assert.Equal(t, auth.ReasonOK, status.Reason)
	assert.Equal(t, "a@x.com", status.Email)

	status = f.svc.Introspect(ctx, issued.Token, "bob")
	assert.False(t, status.Active)
	assert.Equal(t, auth.ReasonSubjectMismatch, status.Reason)
	assert.Equal(t, "alice", status.Subject)

	status = f.svc.Introspect(ctx, "garbage", "alice")
	assert.False(t, status.Active)
	assert.Equal(t, auth.ReasonMalformed, status.Reason)
	assert.Empty(t, status.Subject)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonOK])
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonSubjectMismatch])
	assert.Equal(t, int64(1), snap.Validations[auth.ReasonMalformed])
	assert.Equal(t, []events.EventType{
		events.EventTokenIssued,
		events.EventTokenRejected,
		events.EventTokenRejected,
	}, f.recorded.types())
}

type unavailableRepository struct{}

func (unavailableRepository) GetByUsername(context.Context, string) (*domain.Principal, error) {
	return nil, errDirectoryDown
}

var errDirectoryDown = errors.New("connection refused")

func TestAuthenticate_DirectoryFailure(t *testing.T) {
	tokens, err := auth.NewTokenService("test-secret", time.Minute)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	svc := NewSessionService(SessionDependencies{
		Principals: unavailableRepository{},
		Tokens:     tokens,
		Metrics:    metrics,
	})

	token, err := tokens.Issue("alice", nil)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, errDirectoryDown)
	assert.NotErrorIs(t, err, auth.ErrUnknownPrincipal)
	assert.Empty(t, metrics.Snapshot().Validations)
}

func TestSweepRevocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	f.svc.Logout(ctx, issued.Token, nil)

	assert.Equal(t, 0, f.svc.SweepRevocations())
	f.advance(2 * time.Minute)
	assert.Equal(t, 1, f.svc.SweepRevocations())
	assert.Equal(t, int64(1), f.metrics.Snapshot().EntriesSwept)
}
