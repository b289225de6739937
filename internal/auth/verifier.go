package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a submitted admin secret.
type Verifier interface {
	Verify(secret string) bool
}

// BcryptVerifier compares secrets against a bcrypt hash.
type BcryptVerifier struct {
	hash []byte
}

// NewBcryptVerifier constructs a verifier from an existing bcrypt hash.
func NewBcryptVerifier(hash string) (*BcryptVerifier, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &BcryptVerifier{hash: []byte(hash)}, nil
}

// NewPasswordVerifier hashes a plain password once at startup.
func NewPasswordVerifier(password string) (*BcryptVerifier, error) {
	if password == "" {
		return nil, errors.New("admin password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &BcryptVerifier{hash: hashed}, nil
}

// Verify reports whether secret matches the stored hash.
func (v *BcryptVerifier) Verify(secret string) bool {
	if secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(secret)) == nil
}

// NewVerifier prefers a configured hash and falls back to the plain password.
func NewVerifier(password, passwordHash string) (*BcryptVerifier, error) {
	if strings.TrimSpace(passwordHash) != "" {
		return NewBcryptVerifier(passwordHash)
	}
	return NewPasswordVerifier(password)
}
