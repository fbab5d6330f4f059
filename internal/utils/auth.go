package utils

import (
	"errors"
	"strings"

	"ai-compass/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword creates a bcrypt hash of password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	// bcrypt only looks at the first 72 bytes
	if len(password) > 72 {
		return "", errors.New("password too long (max 72 characters)")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// IsHashed reports whether a stored password is a bcrypt hash
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// VerifyPassword checks password against the stored value, which is either
// a bcrypt hash or the plaintext seeded in mock user files.
func VerifyPassword(stored, password string) error {
	if stored == "" {
		return errors.New("stored password cannot be empty")
	}

	if password == "" {
		return errors.New("password cannot be empty")
	}

	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	}
	if stored != password {
		return errors.New("password mismatch")
	}
	return nil
}

// Sanitize strips the password and threads before a user leaves the server
func Sanitize(u *models.User) *models.PublicUser {
	if u == nil {
		return nil
	}
	bookmarks := u.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return &models.PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Bookmarks:   bookmarks,
	}
}

// DisplayName falls back to the username when no display name is set
func DisplayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
