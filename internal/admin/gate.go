package admin

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Check reports whether the submitted value matches the configured shared
// secret. The secret may be supplied as a bcrypt hash (recognized by its
// prefix) or as plaintext, in which case the comparison is constant-time.
//
// This gate is a UI convenience only. The secret gates which controls are
// shown, nothing more, and it must not be treated as an authorization
// boundary.
func Check(submitted, expected string) bool {
	if expected == "" {
		return false
	}
	if isBcryptHash(expected) {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(submitted)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
