package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool subset the token store needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RefreshToken is one stored (hashed) refresh credential.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// TokenStore persists refresh tokens in Postgres.
type TokenStore struct {
	pool PgxPool
}

// NewTokenStore initializes the store.
func NewTokenStore(pool PgxPool) *TokenStore {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &TokenStore{pool: pool}
}

// Save stores a hashed refresh token.
func (s *TokenStore) Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: save refresh token: %w", err)
	}
	return nil
}

// Lookup returns the live token matching a hash. Expired or revoked tokens
// fail with ErrBadToken.
func (s *TokenStore) Lookup(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	rt := &RefreshToken{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBadToken
		}
		return nil, fmt.Errorf("auth: lookup refresh token: %w", err)
	}
	if rt.Revoked || time.Now().After(rt.ExpiresAt) {
		return nil, ErrBadToken
	}
	return rt, nil
}

// Revoke marks one token unusable.
func (s *TokenStore) Revoke(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("auth: revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser invalidates every live token for a user, used on logout
// and when an account is deactivated.
func (s *TokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`, userID)
	if err != nil {
		return fmt.Errorf("auth: revoke user tokens: %w", err)
	}
	return nil
}
