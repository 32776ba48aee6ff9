package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rkany/pigeon/pkg/types"
)

// CreateUser inserts a new user. The caller provides an already-hashed
// password; the store never sees the plaintext one.
func (s *Store) CreateUser(ctx context.Context, email, firstName, lastName, passwordHash string) (types.User, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&exists)
	if err != nil {
		return types.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists > 0 {
		return types.User{}, ErrEmailTaken
	}

	user := types.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: time.Now().UnixMilli(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.FirstName, user.LastName, passwordHash, user.CreatedAt)
	if err != nil {
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// UserByEmail returns the sanitized user plus the stored password hash for
// credential verification.
func (s *Store) UserByEmail(ctx context.Context, email string) (types.User, string, error) {
	var user types.User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, avatar_url, password_hash, created_at
		 FROM users WHERE email = ?`, email).
		Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.AvatarURL, &hash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return types.User{}, "", ErrNotFound
	}
	if err != nil {
		return types.User{}, "", fmt.Errorf("query user by email: %w", err)
	}
	return user, hash, nil
}

// UserByID returns the sanitized profile for a user id.
func (s *Store) UserByID(ctx context.Context, id string) (types.User, error) {
	var user types.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, avatar_url, created_at
		 FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.AvatarURL, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return types.User{}, ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

// UpdateAvatar stores a new avatar URL and returns the updated profile.
func (s *Store) UpdateAvatar(ctx context.Context, id, avatarURL string) (types.User, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET avatar_url = ? WHERE id = ?", avatarURL, id)
	if err != nil {
		return types.User{}, fmt.Errorf("update avatar: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return types.User{}, ErrNotFound
	}
	return s.UserByID(ctx, id)
}

// Counterparts lists every user except the given one, for the conversation
// sidebar. The projection never includes the password hash.
func (s *Store) Counterparts(ctx context.Context, excludeUserID string) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, avatar_url, created_at
		 FROM users WHERE id != ? ORDER BY first_name, last_name`, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("query counterparts: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
			&user.AvatarURL, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counterparts: %w", err)
	}

	return users, nil
}
