// Package repository provides the development server's persistence over
// database/sql. Queries use $n placeholders, which both the postgres and
// sqlite drivers accept.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLAuthRepository stores user accounts.
type SQLAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLAuthRepository creates a new SQLAuthRepository with the given database connection.
func NewSQLAuthRepository(db *sql.DB) *SQLAuthRepository {
	return &SQLAuthRepository{DB: db}
}

// UserExists checks whether a user with the specified username exists.
func (s *SQLAuthRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	return exists, err
}

// RegisterUser inserts a new user. It reports false if the username was
// already taken.
func (s *SQLAuthRepository) RegisterUser(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		username, passwordHash, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return n == 1, nil
}

// PasswordHash returns the stored hash for username, or ErrNotFound.
func (s *SQLAuthRepository) PasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select user: %w", err)
	}
	return hash, nil
}
