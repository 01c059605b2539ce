package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewAuthService("test-secret")
	tok, err := svc.IssueJWT("student-1", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "student-1" || c.Role != "student" {
		t.Fatalf("claims = %+v, want student-1/student", c)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewAuthService("secret-a").IssueJWT("u", "student")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewAuthService("secret-b").Parse(tok); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

// The parser pins HS256; a token signed with any other algorithm must be
// rejected even when it carries a valid signature under the shared key.
func TestParseRejectsOtherSigningMethods(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		Sub:  "student-1",
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewAuthService(secret).Parse(tok); err == nil {
		t.Fatal("HS384 token must be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		Sub: "student-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewAuthService(secret).Parse(tok); err == nil {
		t.Fatal("expired token must be rejected")
	}
}
