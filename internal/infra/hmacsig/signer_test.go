package hmacsig

import (
	"strings"
	"testing"
)

func TestCanonicalizeSortsKeysAndStripsWhitespace(t *testing.T) {
	a, err := Canonicalize([]byte(`{"b": 2, "a": {"y": [1, 2], "x": "v"}}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"x":"v","y":[1,2]},"b":2}`
	if string(a) != want {
		t.Fatalf("canonical = %s, want %s", a, want)
	}

	b, err := Canonicalize([]byte(`{"a":{"x":"v","y":[1,2]},"b":2}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("key order must not affect canonical form")
	}
}

func TestCanonicalizePreservesNumberText(t *testing.T) {
	got, err := Canonicalize([]byte(`{"ts":1705491082,"temp":21.5}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"temp":21.5,"ts":1705491082}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizeRejectsTrailingData(t *testing.T) {
	if _, err := Canonicalize([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("trailing data must be rejected")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	payload := []byte(`{"data":{"temp":4},"meta":{"nonce":"0123456789abcdef","timestamp":1705491082}}`)

	sig, err := Sign(secret, payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(sig))
	}
	if err := Verify(secret, payload, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
	// Equivalent payload, different formatting.
	reordered := []byte(`{"meta":{"timestamp":1705491082,"nonce":"0123456789abcdef"},"data":{"temp":4}}`)
	if err := Verify(secret, reordered, sig); err != nil {
		t.Fatalf("verify reordered payload: %v", err)
	}
	// Uppercase hex must also verify.
	if err := Verify(secret, payload, strings.ToUpper(sig)); err != nil {
		t.Fatalf("verify uppercase signature: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret, _ := GenerateSecret()
	payload := []byte(`{"amount":100}`)
	sig, err := Sign(secret, payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := Verify(secret, []byte(`{"amount":999}`), sig); err == nil {
		t.Fatal("tampered payload must fail verification")
	}
	if err := Verify(secret, payload, ""); err == nil {
		t.Fatal("empty signature must fail verification")
	}
	other, _ := GenerateSecret()
	if err := Verify(other, payload, sig); err == nil {
		t.Fatal("wrong secret must fail verification")
	}
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	a, _ := GenerateSecret()
	b, _ := GenerateSecret()
	if Fingerprint(a) != Fingerprint(a) {
		t.Fatal("fingerprint must be deterministic")
	}
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("distinct secrets must have distinct fingerprints")
	}
	if len(Fingerprint(a)) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(Fingerprint(a)))
	}
}
