package webhook

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"type":"message","message":{"id":"m1"}}`)
	sig := Sign("s3cret", body)
	if sig == "" {
		t.Fatalf("empty signature")
	}
	if !Verify("s3cret", body, sig) {
		t.Fatalf("round trip failed")
	}
}

func TestVerifyRejectsMutatedBody(t *testing.T) {
	body := []byte(`{"type":"message","message":{"id":"m1"}}`)
	sig := Sign("s3cret", body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if Verify("s3cret", mutated, sig) {
			t.Fatalf("verification passed with byte %d mutated", i)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`payload`)
	sig := Sign("s3cret", body)
	if Verify("other", body, sig) {
		t.Fatalf("verification passed with wrong secret")
	}
}

func TestVerifyEmptySecretSkips(t *testing.T) {
	// Explicit permissive fallback: no configured secret means no check.
	if !Verify("", []byte(`anything`), "") {
		t.Fatalf("empty secret should skip verification")
	}
	if !Verify("", []byte(`anything`), "garbage") {
		t.Fatalf("empty secret should skip verification regardless of header")
	}
}

func TestVerifyMissingSignatureFails(t *testing.T) {
	if Verify("s3cret", []byte(`payload`), "") {
		t.Fatalf("missing signature must fail when a secret is configured")
	}
}
