package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/domain"
	"github.com/spec-kit/token-service/internal/events"
	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
	"github.com/spec-kit/token-service/internal/repository"
	"github.com/spec-kit/token-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	hash, err := auth.HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("router-test-secret", time.Minute)
	require.NoError(t, err)

	principals := repository.NewStaticPrincipalRepository([]domain.Principal{
		{Username: "alice", Email: "a@x.com", PasswordHash: hash, Active: true},
	})
	metrics := observability.NewMetrics()
	sessions := service.NewSessionService(service.SessionDependencies{
		Principals: principals,
		Tokens:     tokens,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    metrics,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("token-service", "test", &persistence.Postgres{}, metrics, tokens.RevokedCount),
		Auth:           handlers.NewAuthHandler(sessions),
		AuthMiddleware: auth.NewAuthMiddleware(sessions),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestLoginMeLogoutFlow(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/auth/login", "", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	assert.Equal(t, "Bearer", data["token_type"])
	assert.NotEmpty(t, data["expires_at"])

	status, body = doJSON(t, app, fiber.MethodGet, "/auth/me", token, "")
	require.Equal(t, fiber.StatusOK, status, body)
	me := body["data"].(map[string]any)
	assert.Equal(t, "alice", me["subject"])
	assert.Equal(t, "a@x.com", me["email"])

	status, _ = doJSON(t, app, fiber.MethodPost, "/auth/logout", token, "")
	require.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/auth/me", token, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, body = doJSON(t, app, fiber.MethodPost, "/auth/introspect", "", `{"token":"`+token+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	introspection := body["data"].(map[string]any)
	assert.Equal(t, false, introspection["active"])
	assert.Equal(t, auth.ReasonRevoked, introspection["reason"])
	assert.Equal(t, "alice", introspection["subject"])

	status, body = doJSON(t, app, fiber.MethodGet, "/metrics", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["revocation_entries"])
	counters := body["metrics"].(map[string]any)
	assert.Equal(t, float64(1), counters["tokens_issued"])
	assert.Equal(t, float64(1), counters["tokens_revoked"])
}

func TestLoginRejections(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/auth/login", "", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, body = doJSON(t, app, fiber.MethodPost, "/auth/login", "", `{"username":"alice"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, _ = doJSON(t, app, fiber.MethodGet, "/auth/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/auth/introspect", "", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, fiber.MethodPost, "/auth/introspect", "", `{"token":"abc.def.ghi"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, auth.ReasonMalformed, body["data"].(map[string]any)["reason"])
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodGet, "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = doJSON(t, app, fiber.MethodGet, "/health/ready", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "disabled", body["dependencies"].(map[string]any)["postgres"])
}
