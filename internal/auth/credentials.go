package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin holds the single operator account allowed to change the catalog.
type Admin struct {
	Username     string
	PasswordHash string // bcrypt
}

// Enabled reports whether admin credentials are configured at all.
func (a Admin) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

func (a Admin) Verify(username, password string) error {
	if !a.Enabled() {
		return ErrInvalidCredentials
	}
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	hashErr := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	if !nameOK || hashErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	if len(password) < 8 || len(password) > 72 {
		return "", fmt.Errorf("password must be 8-72 chars")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
