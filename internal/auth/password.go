package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultCost is the bcrypt work factor (~250ms per hash on a modern server).
	defaultCost = 12

	// MinPasswordLength is the shortest password sign-up accepts.
	MinPasswordLength = 6

	// bcrypt silently truncates anything longer.
	maxPasswordBytes = 72
)

var (
	// ErrWeakPassword is returned by CheckStrength and Hash for short passwords.
	ErrWeakPassword = errors.New("auth: password too weak")

	// ErrPasswordMismatch is returned by Verify when the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification.
// The cost is a field so tests can use the bcrypt minimum.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use bcrypt.MinCost (4) in tests of other packages. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckStrength enforces the sign-up length rules.
func (p *PasswordService) CheckStrength(plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}
	return nil
}

// Hash checks the password strength and hashes it with bcrypt.
// The result embeds salt and cost, so it is stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := p.CheckStrength(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a stored bcrypt hash.
// An empty hash (Google-only account) never matches.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
