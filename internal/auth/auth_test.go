package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-that-is-long-enough-for-testing"

func TestNewTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "test-issuer", "test-audience", time.Hour)

	if issuer.secret != testSecret {
		t.Errorf("Expected secret %s, got %s", testSecret, issuer.secret)
	}
	if issuer.issuer != "test-issuer" {
		t.Errorf("Expected issuer test-issuer, got %s", issuer.issuer)
	}
	if issuer.audience != "test-audience" {
		t.Errorf("Expected audience test-audience, got %s", issuer.audience)
	}
	if issuer.expiry != time.Hour {
		t.Errorf("Expected expiry %v, got %v", time.Hour, issuer.expiry)
	}
}

func TestTokenIssuer_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		issuer   string
		audience string
		expiry   time.Duration
		wantErr  bool
	}{
		{"valid config", testSecret, "test-issuer", "test-audience", time.Hour, false},
		{"empty secret", "", "test-issuer", "test-audience", time.Hour, true},
		{"secret too short", "short", "test-issuer", "test-audience", time.Hour, true},
		{"empty issuer", testSecret, "", "test-audience", time.Hour, true},
		{"empty audience", testSecret, "test-issuer", "", time.Hour, true},
		{"negative expiry", testSecret, "test-issuer", "test-audience", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTokenIssuer(tt.secret, tt.issuer, tt.audience, tt.expiry).ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenIssuer_GenerateAndValidate(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "test-issuer", "test-audience", time.Hour)

	token, expires, err := issuer.GenerateToken("panel", []string{"panel", "reader"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Errorf("Expected a three-part JWT, got %q", token)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("Expected expiry in the future, got %v", expires)
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Service != "panel" {
		t.Errorf("Expected service panel, got %s", claims.Service)
	}
	if !claims.HasRole("reader") {
		t.Error("Expected reader role")
	}
	if claims.HasRole("admin") {
		t.Error("Did not expect admin role")
	}
}

func TestTokenIssuer_ValidateRejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "test-issuer", "test-audience", time.Hour)

	other := NewTokenIssuer("another-secret-that-is-long-enough-too", "test-issuer", "test-audience", time.Hour)
	foreign, _, err := other.GenerateToken("panel", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.ValidateToken(foreign); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}

	wrongAud := NewTokenIssuer(testSecret, "test-issuer", "someone-else", time.Hour)
	tok, _, _ := wrongAud.GenerateToken("panel", nil)
	if _, err := issuer.ValidateToken(tok); err == nil {
		t.Error("Expected token for another audience to be rejected")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Service: "panel"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := issuer.ValidateToken(unsigned); err == nil {
		t.Error("Expected unsigned token to be rejected")
	}
}

func TestTokenIssuer_TokenCaching(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "test-issuer", "test-audience", time.Hour)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	first, err := issuer.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _ := issuer.Token(context.Background())
	if first != second {
		t.Error("Expected cached token to be reused")
	}

	now = now.Add(time.Hour - 10*time.Second)
	third, _ := issuer.Token(context.Background())
	if third == first {
		t.Error("Expected token to be refreshed near expiry")
	}
}
