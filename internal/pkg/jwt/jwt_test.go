package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssuePairRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	userID := uuid.New()

	pair, err := svc.IssuePair(userID)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %s, want %s", claims.UserID, userID)
	}

	if _, err := svc.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	pair, err := svc.IssuePair(uuid.New())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.ValidateAccessToken(pair.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := svc.ValidateRefreshToken(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := svc.IssuePair(uuid.New())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := svc.ValidateAccessToken(pair.AccessToken); err != ErrExpiredToken {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	pair, err := NewService("one", time.Minute, time.Hour).IssuePair(uuid.New())
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := NewService("two", time.Minute, time.Hour).ValidateAccessToken(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestHashRefreshTokenStable(t *testing.T) {
	if HashRefreshToken("abc") != HashRefreshToken("abc") {
		t.Fatal("hash not deterministic")
	}
	if len(HashRefreshToken("abc")) != 64 {
		t.Fatal("unexpected hash length")
	}
}
