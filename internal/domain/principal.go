package domain

import "time"

// Principal is an account that may be issued tokens. The token subject is its Username.
type Principal struct {
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
