package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/dto"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/service"
	apperrors "github.com/spec-kit/token-service/pkg/util"
)

// AuthHandler exposes token endpoints.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	issued, err := h.sessions.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrPrincipalInactive) {
			return apperrors.NewUnauthorized(err.Error())
		}
		return apperrors.NewInternalError(err)
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{Token: issued.Token, TokenType: "Bearer", ExpiresAt: issued.ExpiresAt},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	h.sessions.Logout(c.UserContext(), principal.Token, principal.Claims)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	return c.JSON(fiber.Map{"data": dto.MeResponse{
		Subject:   principal.Claims.Subject,
		Email:     principal.Account.Email,
		TokenID:   principal.Claims.ID,
		IssuedAt:  principal.Claims.IssuedAt,
		ExpiresAt: principal.Claims.ExpiresAt,
	}})
}

// Introspect handles POST /auth/introspect.
func (h *AuthHandler) Introspect(c *fiber.Ctx) error {
	var req dto.IntrospectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	status := h.sessions.Introspect(c.UserContext(), req.Token, req.Subject)
	resp := dto.IntrospectResponse{
		Active:  status.Active,
		Reason:  status.Reason,
		Subject: status.Subject,
		Email:   status.Email,
	}
	if !status.IssuedAt.IsZero() {
		resp.IssuedAt = &status.IssuedAt
	}
	if !status.ExpiresAt.IsZero() {
		resp.ExpiresAt = &status.ExpiresAt
	}
	return c.JSON(fiber.Map{"data": resp})
}
