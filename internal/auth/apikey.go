package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const apiKeyPrefix = "moltmarket_"

// GenerateAPIKey returns a new plaintext agent key. Only its hash is
// ever persisted.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

// HasKeyPrefix reports whether a presented credential even looks like
// one of our keys; anything else skips the hash lookup.
func HasKeyPrefix(apiKey string) bool {
	return strings.HasPrefix(apiKey, apiKeyPrefix)
}

func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func VerifyAPIKey(rawAPIKey, expectedHash string) bool {
	actual := HashAPIKey(rawAPIKey)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}

// BearerToken extracts the token from an Authorization header, or ""
// when the header is not a bearer credential.
func BearerToken(authHeader string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
}
