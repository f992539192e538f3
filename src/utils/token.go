package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomToken returns n random bytes from crypto/rand, hex encoded.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewAPIKey returns an unguessable access token.
func NewAPIKey() (string, error) {
	key, err := RandomToken(APIKeyBytes)
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return key, nil
}
