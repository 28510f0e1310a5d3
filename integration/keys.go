// Package integration manages the credentials behind chat-gateway
// connections: API keys shown to the caller exactly once, bcrypt hashes at
// rest, and the per-integration webhook signing secret.
package integration

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	keyPrefixTag = "mb_"
	keyRandBytes = 16
	secretBytes  = 32

	// Characters of the raw key stored in the clear for list views.
	prefixLen = 11
)

// NewAPIKey mints a raw API key. The raw value is returned to the client once
// and never persisted.
func NewAPIKey() (string, error) {
	buf := make([]byte, keyRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefixTag + hex.EncodeToString(buf), nil
}

// NewWebhookSecret mints the HMAC signing secret shared with the receiver.
func NewWebhookSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashAPIKey derives the bcrypt hash stored in place of the raw key.
func HashAPIKey(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether raw matches the stored hash.
func VerifyAPIKey(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// KeyPrefix returns the short leading fragment kept in the clear so users can
// tell keys apart in list views.
func KeyPrefix(raw string) string {
	if len(raw) <= prefixLen {
		return raw
	}
	return raw[:prefixLen]
}

// MaskKey renders a prefix for display, e.g. "mb_1f2e3d4c...".
func MaskKey(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	return prefix + "..."
}
