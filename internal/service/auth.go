// Package service holds the business logic behind the HTTP handlers.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ SessionService (session cookie JWT)
//	                   ↘ PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Email/password sign-up and sign-in
//   - Google sign-in (get-or-create the account by email)
//   - Resolve the session cookie into the current user
//
// Identity failures are returned as apperror values carrying the exact
// user-facing message, so handlers only translate them to HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/interview-me/internal/apperror"
	"github.com/sakif/interview-me/internal/auth"
	"github.com/sakif/interview-me/internal/model"
	"github.com/sakif/interview-me/internal/repository"
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - sessions   *auth.SessionService       → issue/verify session tokens
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	sessions  *auth.SessionService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions *auth.SessionService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// caller (the HTTP handler) can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an email/password account. It does not sign the user in;
// the client is expected to call SignIn afterwards.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, apperror.WeakPassword(auth.MinPasswordLength)
		}
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.EmailInUse()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return user, nil
}

// SignIn checks email and password and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("sign-in rejected", slog.String("userID", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// SignInWithGoogle signs in the account matching the Google email, creating
// it on first login. Unverified Google emails are refused.
func (s *AuthService) SignInWithGoogle(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	if !profile.EmailVerified {
		return nil, apperror.Forbidden("Google account email is not verified")
	}
	email, err := normalizeEmail(profile.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{Name: profile.Name, Email: email, PhotoURL: profile.Picture}
		if user.Name == "" {
			user.Name = email[:strings.IndexByte(email, '@')]
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating google user: %w", err)
		}
		s.logger.Info("user signed up with google", slog.String("userID", user.ID))
	default:
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	return s.issue(user)
}

// CurrentUser resolves a session token into its user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.sessions.Verify(token)
	if err != nil {
		return nil, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "Session expired. Please sign in again"}
	}
	return s.GetUser(ctx, userID)
}

// GetUser loads a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: get user %s: %w", userID, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session: %w", err)
	}
	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// normalizeEmail lower-cases and validates a bare address.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "Please enter a valid email address")
	}
	return email, nil
}
