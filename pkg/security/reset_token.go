package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const resetTokenBytes = 32

// NewResetToken returns a URL-safe password reset token and the digest that
// is stored server-side. Only the digest is ever persisted.
func NewResetToken() (string, string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, DigestResetToken(token), nil
}

// DigestResetToken hashes a reset token for lookup.
func DigestResetToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
