package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-admin-secret"

func TestMintAndValidate(t *testing.T) {
	v := NewValidator(testSecret)
	token, err := v.Mint("ops@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("subject = %s, want ops@example.com", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %s, want admin", claims.Role)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewValidator("other-secret").Mint("ops", "admin", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := NewValidator(testSecret).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	v := NewValidatorWithLeeway(testSecret, 0)
	token, err := v.Mint("ops", "admin", -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := v.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	v := NewValidator(testSecret)
	for _, token := range []string{"", "not.a.jwt", "a.b"} {
		if _, err := v.Validate(token); err == nil {
			t.Fatalf("token %q must be rejected", token)
		}
	}
}
