package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of the exact serialized body bytes. The
// remote verifier recomputes this over the raw bytes it received, so the body
// must be serialized exactly once and never re-encoded after signing.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks an inbound signature against the raw received body using a
// constant-time comparison.
//
// An empty configured secret skips verification entirely (explicit permissive
// fallback for integrations created before signing was enabled). A missing
// signature while a secret is configured always fails.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
