package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// PortalSecrets are the signing keys the server needs at startup
type PortalSecrets struct {
	JWTSecret        string
	JWTRefreshSecret string
	SessionSecret    string
}

// GeneratePortalSecrets generates distinct access, refresh and session secrets
func GeneratePortalSecrets() (*PortalSecrets, error) {
	var s PortalSecrets
	var err error

	if s.JWTSecret, err = GenerateSecret(32); err != nil {
		return nil, fmt.Errorf("failed to generate access secret: %w", err)
	}
	if s.JWTRefreshSecret, err = GenerateSecret(32); err != nil {
		return nil, fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	if s.SessionSecret, err = GenerateSecret(32); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return &s, nil
}

// HashPassword returns the bcrypt hash stored in DRIVER_PASSWORD_HASH or
// MANAGEMENT_PASSWORD_HASH
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
