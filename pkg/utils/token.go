package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// PortalTokenBytes is the entropy of a generated portal token.
const PortalTokenBytes = 32

// NewPortalToken returns an unguessable URL-safe token.
func NewPortalToken() (string, error) {
	b := make([]byte, PortalTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
