package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewHexToken returns size random bytes hex-encoded.
func NewHexToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random.NewHexToken: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// NewOTPCode returns a 6-digit numeric one-time code.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("random.NewOTPCode: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
