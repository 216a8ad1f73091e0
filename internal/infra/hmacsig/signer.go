// Package hmacsig implements the shared-secret request signature scheme used
// by vending machines: HMAC-SHA256 over a canonical JSON payload, hex-encoded.
package hmacsig

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const secretSize = 32

// GenerateSecret produces a fresh device secret. Secrets are random bytes,
// never derived from machine attributes.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// Fingerprint is the sha256 hex digest of a secret, safe for display and
// journaling without exposing the secret itself.
func Fingerprint(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}

// Sign computes the hex-encoded HMAC-SHA256 of the canonicalized payload.
func Sign(secret []byte, payload []byte) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time.
func Verify(secret []byte, payload []byte, signature string) error {
	if signature == "" {
		return errors.New("signature is required")
	}
	expected, err := Sign(secret, payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return errors.New("signature verification failed")
	}
	return nil
}

// PayloadHash is the sha256 hex digest of the canonical payload, recorded in
// the audit trail for forensic correlation.
func PayloadHash(payload []byte) string {
	canonical, err := Canonicalize(payload)
	if err != nil {
		canonical = payload
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
