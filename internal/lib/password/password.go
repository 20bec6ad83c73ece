package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hash returns a bcrypt digest of the password. Surrounding whitespace is
// never part of the secret.
func Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(plain)), bcrypt.DefaultCost)
}

// Verify reports whether the password matches the digest. A malformed digest
// compares as false, it is not an error.
func Verify(plain string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(strings.TrimSpace(plain))) == nil
}
