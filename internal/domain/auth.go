package domain

import "time"

// IssuedToken describes a token handed out by a login.
type IssuedToken struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// TokenStatus is the diagnostic outcome of an introspection.
type TokenStatus struct {
	Active    bool
	Reason    string
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
