package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auth-service/internal/model"
)

// PostgresSessionStore keeps the single live refresh fingerprint per user in
// the refresh_sessions table. Swap relies on the conditional UPDATE being
// atomic: of N concurrent rotations presenting the same expected value,
// exactly one row update matches.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) Get(ctx context.Context, userID string) (string, error) {
	var fingerprint string
	err := s.pool.QueryRow(ctx,
		`SELECT fingerprint FROM refresh_sessions WHERE user_id = $1`, userID).
		Scan(&fingerprint)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get refresh session: %w", err)
	}
	return fingerprint, nil
}

func (s *PostgresSessionStore) Put(ctx context.Context, userID string, fingerprint string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_sessions (user_id, fingerprint, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET fingerprint = $2, updated_at = $3`,
		userID, fingerprint, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put refresh session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Swap(ctx context.Context, userID string, expected string, next string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_sessions SET fingerprint = $3, updated_at = $4
		 WHERE user_id = $1 AND fingerprint = $2`,
		userID, expected, next, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("swap refresh session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresSessionStore) Clear(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear refresh session: %w", err)
	}
	return nil
}
