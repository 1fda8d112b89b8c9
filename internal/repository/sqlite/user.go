package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

type userStore struct {
	conn *sql.DB
}

// compile-time check that *userStore implements repository.UserRepository
var _ repository.UserRepository = (*userStore)(nil)

// Create inserts a new user. The email column is UNIQUE, so a second account
// for the same address fails with apperror.ErrConflict.
func (s *userStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, photo_url, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PhotoURL,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.scanOne(ctx, `WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address. Callers pass the normalised
// (trimmed, lower-cased) address.
func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.scanOne(ctx, `WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return u, nil
}

func (s *userStore) scanOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, email, photo_url, password_hash, created_at FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PhotoURL,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
