package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type UserStore struct {
	db *sql.DB
}

// Create inserts a user and returns its id. A taken email yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		strings.ToLower(email), passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// Credentials returns the id and password hash for an email.
func (s *UserStore) Credentials(ctx context.Context, email string) (int, string, error) {
	var (
		id   int
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM users WHERE email = $1",
		strings.ToLower(email),
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("select user: %w", err)
	}
	return id, hash, nil
}
