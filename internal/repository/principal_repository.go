package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/token-service/internal/domain"
)

// ErrPrincipalNotFound is returned when no principal has the requested username.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalRepository looks up principals that tokens are issued to.
type PrincipalRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

func (r *principalRepository) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	const query = `
        SELECT username, email, password_hash, active, created_at, updated_at
        FROM principals WHERE username=$1`

	var principal domain.Principal
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&principal.Username,
		&principal.Email,
		&principal.PasswordHash,
		&principal.Active,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return &principal, nil
}

type staticPrincipalRepository struct {
	principals map[string]domain.Principal
}

// NewStaticPrincipalRepository serves a fixed set of principals from memory.
func NewStaticPrincipalRepository(principals []domain.Principal) PrincipalRepository {
	byName := make(map[string]domain.Principal, len(principals))
	for _, p := range principals {
		byName[p.Username] = p
	}
	return &staticPrincipalRepository{principals: byName}
}

func (r *staticPrincipalRepository) GetByUsername(_ context.Context, username string) (*domain.Principal, error) {
	principal, ok := r.principals[username]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return &principal, nil
}
