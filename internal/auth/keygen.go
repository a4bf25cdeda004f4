package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateCredential returns a new random bearer credential suitable for the
// credential→role configuration mapping.
func GenerateCredential() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
