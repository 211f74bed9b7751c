// Package auth provides credential checks and JWT issuance for the
// control API.
package auth

import (
	"errors"
	"os"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Authenticator handles operator authentication
type Authenticator struct {
	enabled      bool
	username     string
	passwordHash []byte
	jwtManager   *JWTManager
}

// NewAuthenticator creates a new authenticator from environment variables
func NewAuthenticator() *Authenticator {
	enabled := os.Getenv("AUTH_ENABLED") == "true"

	username := os.Getenv("AUTH_USERNAME")
	if username == "" {
		username = "admin"
	}

	password := os.Getenv("AUTH_PASSWORD")
	var passwordHash []byte

	if enabled && password != "" {
		// Accept a pre-hashed bcrypt value or hash the plaintext
		if len(password) == 60 && password[0] == '$' {
			passwordHash = []byte(password)
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err == nil {
				passwordHash = hash
			}
		}
	}

	return &Authenticator{
		enabled:      enabled,
		username:     username,
		passwordHash: passwordHash,
		jwtManager:   NewJWTManager(),
	}
}

// IsEnabled returns whether authentication is enabled
func (a *Authenticator) IsEnabled() bool {
	return a.enabled
}

// Authenticate validates credentials and returns a JWT token with its
// unix expiry.
func (a *Authenticator) Authenticate(username, password string) (string, int64, error) {
	if !a.enabled {
		return "", 0, ErrAuthDisabled
	}

	if username != a.username {
		return "", 0, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", 0, ErrInvalidCredentials
	}

	token, expiresAt, err := a.jwtManager.GenerateToken(username)
	if err != nil {
		return "", 0, err
	}

	return token, expiresAt.Unix(), nil
}

// ValidateToken validates a JWT token
func (a *Authenticator) ValidateToken(token string) (*Claims, error) {
	return a.jwtManager.ValidateToken(token)
}
