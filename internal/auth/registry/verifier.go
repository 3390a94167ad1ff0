package registry

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SynthesizingVerifier accepts any email/password pair. It is a placeholder
// for environments without a credential backend; it is NOT a security
// boundary and production deployments must substitute a real verifier such
// as BcryptVerifier.
type SynthesizingVerifier struct{}

// NewSynthesizingVerifier creates the accept-all verifier
func NewSynthesizingVerifier() SynthesizingVerifier {
	return SynthesizingVerifier{}
}

// Verify always succeeds
func (SynthesizingVerifier) Verify(ctx context.Context, email, password string) error {
	return nil
}

// PasswordHashSource looks up the stored bcrypt hash for an email
type PasswordHashSource interface {
	PasswordHash(ctx context.Context, email string) (string, error)
}

// BcryptVerifier checks credentials against stored bcrypt hashes
type BcryptVerifier struct {
	source PasswordHashSource
}

// NewBcryptVerifier creates a verifier backed by the given hash source
func NewBcryptVerifier(source PasswordHashSource) *BcryptVerifier {
	return &BcryptVerifier{source: source}
}

// Verify compares the password against the stored hash for the email
func (v *BcryptVerifier) Verify(ctx context.Context, email, password string) error {
	hash, err := v.source.PasswordHash(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("credential mismatch: %w", err)
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for storing in a registry
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
