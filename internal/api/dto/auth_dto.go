package dto

import "time"

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IntrospectRequest payload for POST /auth/introspect. Subject defaults to the token's own.
type IntrospectRequest struct {
	Token   string `json:"token"`
	Subject string `json:"subject,omitempty"`
}

// IntrospectResponse reports the validity of a token.
type IntrospectResponse struct {
	Active    bool       `json:"active"`
	Reason    string     `json:"reason"`
	Subject   string     `json:"subject,omitempty"`
	Email     string     `json:"email,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MeResponse describes the authenticated principal and its token.
type MeResponse struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
