package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/user"
)

// UserStore is the PostgreSQL-backed identity store.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a UserStore using the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create registers a new account. A unique-constraint violation on the
// username maps to user.ErrUsernameTaken.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (user.Record, error) {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`

	var record user.Record
	err := s.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&record.ID, &record.Username, &record.PasswordHash, &record.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return user.Record{}, user.ErrUsernameTaken
		}
		return user.Record{}, fmt.Errorf("create user: %w", err)
	}

	return record, nil
}

// FindByID resolves a user id to its record.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (user.Record, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1`

	var record user.Record
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&record.ID, &record.Username, &record.PasswordHash, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Record{}, user.ErrNotFound
		}
		return user.Record{}, fmt.Errorf("find user by id: %w", err)
	}

	return record, nil
}

// FindByUsername resolves a username to its record.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (user.Record, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1`

	var record user.Record
	err := s.pool.QueryRow(ctx, query, username).
		Scan(&record.ID, &record.Username, &record.PasswordHash, &record.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Record{}, user.ErrNotFound
		}
		return user.Record{}, fmt.Errorf("find user by username: %w", err)
	}

	return record, nil
}
