package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used by HashPassword
const DefaultBcryptCost = 12

// StaticCredentials verifies the single exchange account from configuration.
// The password is either plain text or a bcrypt hash.
type StaticCredentials struct {
	username string
	password string
}

// NewStaticCredentials creates a verifier. With an empty username no
// credentials are required.
func NewStaticCredentials(username, password string) *StaticCredentials {
	return &StaticCredentials{username: username, password: password}
}

// Required reports whether an account is configured
func (c *StaticCredentials) Required() bool {
	return c.username != ""
}

// Verify checks the given username and password.
func (c *StaticCredentials) Verify(username, password string) bool {
	if !c.Required() {
		return true
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := c.checkPassword(password)
	return userOK && passOK
}

func (c *StaticCredentials) checkPassword(password string) bool {
	if isBcryptHash(c.password) {
		return bcrypt.CompareHashAndPassword([]byte(c.password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2")
}

// HashPassword returns a bcrypt hash suitable for exchange.password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
