package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid strong password",
			password:   "SecurePass123",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "Pass@1",
			shouldFail: true,
		},
		{
			name:       "missing uppercase",
			password:   "securepass123",
			shouldFail: true,
		},
		{
			name:       "missing lowercase",
			password:   "SECUREPASS123",
			shouldFail: true,
		},
		{
			name:       "missing digit",
			password:   "SecurePassword",
			shouldFail: true,
		},
		{
			name:       "common password rejected",
			password:   "Password123!",
			shouldFail: true,
		},
		{
			name:       "valid with symbols",
			password:   "MyP@ssw0rd!x",
			shouldFail: false,
		},
		{
			name:       "too long",
			password:   "Aa1" + strings.Repeat("x", 130),
			shouldFail: true,
		},
		{
			name:       "empty",
			password:   "",
			shouldFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.shouldFail {
				if err == nil {
					t.Errorf("expected error, got nil")
				} else if err.Error() != "invalid password" {
					t.Errorf("policy failures must stay generic, got %q", err.Error())
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidatePassword_CollectsAllFailures(t *testing.T) {
	err := ValidatePassword("short")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var verr *PasswordValidationError
	ok := false
	if v, isValidation := err.(*PasswordValidationError); isValidation {
		verr = v
		ok = true
	}
	if !ok {
		t.Fatalf("expected *PasswordValidationError, got %T", err)
	}

	// "short" misses the length, uppercase, and digit rules at once.
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 recorded failures, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecurePass123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == password {
		t.Error("hash should not equal the plaintext password")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	if err := ComparePassword(hash, password); err != nil {
		t.Errorf("correct password should compare clean: %v", err)
	}
	if err := ComparePassword(hash, "WrongPass456"); err == nil {
		t.Error("wrong password should not compare clean")
	}
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestHashPassword_SaltsEachHash(t *testing.T) {
	first, err := HashPassword("SecurePass123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("SecurePass123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password should differ")
	}
}
