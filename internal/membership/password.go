// internal/membership/password.go
package membership

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"librarydesk/internal/domain"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for membership passwords.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// newCredential salts and hashes password for storage on a student.
func newCredential(password string) (*domain.Credential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &domain.Credential{
		PasswordHash: base64.StdEncoding.EncodeToString(deriveKey(password, salt)),
		Salt:         base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// matches reports whether password reproduces the stored hash.
func matches(c *domain.Credential, password string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(c.Salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(c.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}
	return subtle.ConstantTimeCompare(want, deriveKey(password, salt)) == 1, nil
}
