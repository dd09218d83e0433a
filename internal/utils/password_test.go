package utils

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"empty", "", true},
		{"too short", "abc12", true},
		{"minimum", "abc123", false},
		{"at bcrypt limit", strings.Repeat("x", MaxPasswordBytes), false},
		{"over bcrypt limit", strings.Repeat("x", MaxPasswordBytes+1), true},
		{"multibyte counted in bytes", strings.Repeat("é", 37), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-quote")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash = %q, expected a bcrypt hash", hash)
	}

	other, _ := HashPassword("s3cret-quote")
	if other == hash {
		t.Error("hashes of the same password should be salted differently")
	}

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"match", "s3cret-quote", hash, true},
		{"case differs", "S3cret-quote", hash, false},
		{"empty password", "", hash, false},
		{"malformed hash", "s3cret-quote", "not-a-hash", false},
		{"empty hash", "s3cret-quote", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.expected {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.expected)
			}
		})
	}
}
