package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	fixed := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return fixed }

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(id uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		req = req.WithContext(WithUserID(req.Context(), id))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	alice, bob := uuid.New(), uuid.New()
	if hit(alice) != http.StatusOK || hit(alice) != http.StatusOK {
		t.Fatal("burst should be allowed")
	}
	if code := hit(alice); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}
	if code := hit(bob); code != http.StatusOK {
		t.Fatalf("other user = %d, want 200", code)
	}

	fixed = fixed.Add(time.Second)
	if code := hit(alice); code != http.StatusOK {
		t.Fatalf("after refill = %d, want 200", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(time.Hour)
	rl.allow("b")
	rl.Cleanup(time.Minute)

	if _, ok := rl.limiters["a"]; ok {
		t.Fatal("idle limiter not removed")
	}
	if _, ok := rl.limiters["b"]; !ok {
		t.Fatal("active limiter removed")
	}
}
