package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func withSecret(t *testing.T, secret string) {
	t.Helper()
	SetJWTSecret(secret)
	t.Cleanup(func() { SetJWTSecret("consultdesk-test") })
}

func TestTokenRoundTrip(t *testing.T) {
	withSecret(t, "round-trip")

	token, err := GenerateToken(42, "alice", "admin", 8)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != "admin" {
		t.Errorf("claims = %+v, expected user 42 alice admin", claims)
	}
	if claims.Issuer != "consultdesk" {
		t.Errorf("Issuer = %q, expected consultdesk", claims.Issuer)
	}

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != 8*time.Hour {
		t.Errorf("lifetime = %v, expected 8h", lifetime)
	}
}

func TestParseTokenRejects(t *testing.T) {
	withSecret(t, "signing-key")

	expired, _ := GenerateToken(1, "bob", "user", -1)

	SetJWTSecret("other-key")
	foreign, _ := GenerateToken(1, "bob", "user", 1)
	SetJWTSecret("signing-key")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	otherAlg, _ := hs512.SignedString([]byte("signing-key"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"signed with another secret", foreign},
		{"alg none", unsigned},
		{"unexpected algorithm", otherAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token); err == nil {
				t.Errorf("ParseToken() accepted a %s token", tt.name)
			}
		})
	}
}

func TestTokensDifferPerUser(t *testing.T) {
	withSecret(t, "per-user")

	a, _ := GenerateToken(1, "alice", "admin", 1)
	b, _ := GenerateToken(2, "bob", "user", 1)
	if a == b {
		t.Error("tokens of different users should differ")
	}
}
