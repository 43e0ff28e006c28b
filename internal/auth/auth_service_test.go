package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"jobnest/internal/auth"
	"jobnest/internal/auth/authtest"
)

func TestGenerateAndValidateTokenPair(t *testing.T) {
	t.Parallel()

	svc := authtest.NewService(t)

	pair, err := svc.GenerateTokenPair(42, "recruiter")
	if err != nil {
		t.Fatalf("GenerateTokenPair error: %v", err)
	}

	access, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken(access) error: %v", err)
	}
	if access.UserID != 42 || access.Role != "recruiter" || access.TokenType != auth.TokenTypeAccess {
		t.Fatalf("unexpected access claims: %+v", access)
	}
	if access.ID != "" {
		t.Fatalf("access token should not carry a jti, got %q", access.ID)
	}

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateToken(refresh) error: %v", err)
	}
	if refresh.TokenType != auth.TokenTypeRefresh || refresh.ID == "" {
		t.Fatalf("unexpected refresh claims: %+v", refresh)
	}
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	t.Parallel()

	issuer := authtest.NewService(t)
	verifier := authtest.NewService(t)

	pair, err := issuer.GenerateTokenPair(1, "seeker")
	if err != nil {
		t.Fatalf("GenerateTokenPair error: %v", err)
	}
	if _, err := verifier.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expected token signed by another key to be rejected")
	}
	if _, err := verifier.ValidateToken(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	privatePEM, publicPEM := authtest.GeneratePEM(t)
	svc, err := auth.NewAuthService(privatePEM, publicPEM, -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService error: %v", err)
	}
	pair, err := svc.GenerateTokenPair(7, "seeker")
	if err != nil {
		t.Fatalf("GenerateTokenPair error: %v", err)
	}
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expected expired access token to be rejected")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !auth.CheckPasswordHash("s3cret-pass", hash) {
		t.Fatal("expected password to match its hash")
	}
	if auth.CheckPasswordHash("wrong-pass", hash) {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestPasswordTooLong(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 73)
	if _, err := auth.HashPassword(long); !errors.Is(err, auth.ErrPasswordTooLong) {
		t.Fatalf("HashPassword error = %v, want ErrPasswordTooLong", err)
	}
	if auth.CheckPasswordHash(long, "$2a$10$invalid") {
		t.Fatal("over-long password must not match")
	}
}
