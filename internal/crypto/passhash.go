// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for account passwords.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	// SaltLen is the per-user salt size in bytes.
	SaltLen = 16
)

// NewSalt returns a fresh random salt of SaltLen bytes.
func NewSalt() ([]byte, error) {
	b := make([]byte, SaltLen)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// HashPassword derives the stored hash of password with salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword reports whether password hashes to expected under salt.
// The comparison is constant-time.
func VerifyPassword(password, salt, expected []byte) bool {
	if len(expected) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(HashPassword(password, salt), expected) == 1
}
