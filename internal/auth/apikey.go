// Package auth handles the bearer token that guards the status server.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const tokenPrefix = "clawdx_tk_"

// GenerateToken returns a new random bearer token carrying the clawdx_tk_
// prefix. Only its hash should be stored.
func GenerateToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(raw), nil
}

// HashToken returns the hex sha256 of token, the form kept in config and
// compared by VerifyToken.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares token against a stored hash in constant time.
func VerifyToken(token, expectedHash string) bool {
	actual := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}

func BearerToken(authHeader string) string {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
