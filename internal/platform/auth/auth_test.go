package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHMACRoundTrip(t *testing.T) {
	svc, err := NewTokenService(Config{Mode: ModeHMAC, Secret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, err := svc.Issue(context.Background(), "alex@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	user, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.UserID != "alex@example.com" {
		t.Fatalf("subject = %q", user.UserID)
	}
	if user.ExpiresAt == 0 {
		t.Fatalf("expected expiry to be set")
	}
}

func TestHMACRejectsForeignAndExpiredTokens(t *testing.T) {
	svc, err := NewTokenService(Config{Mode: ModeHMAC, Secret: testSecret, TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	other, err := NewTokenService(Config{Mode: ModeHMAC, Secret: strings.Repeat("z", 32)})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	foreign, _ := other.Issue(context.Background(), "alex@example.com")
	if _, err := svc.Verify(context.Background(), foreign); err == nil {
		t.Fatalf("expected foreign token to be rejected")
	}

	h := svc.(*hmacTokens)
	h.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := h.Issue(context.Background(), "alex@example.com")
	h.now = time.Now
	if _, err := svc.Verify(context.Background(), stale); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestHMACRequiresLongSecret(t *testing.T) {
	if _, err := NewTokenService(Config{Mode: ModeHMAC, Secret: "short"}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	if _, err := NewTokenService(Config{Mode: "clerk"}); err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}

func TestMiddleware(t *testing.T) {
	svc, _ := NewTokenService(Config{Mode: ModeNoop})
	var seen string
	h := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatalf("user missing from context")
		}
		seen = user.UserID
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header map[string]string
		status int
		user   string
	}{
		{name: "bearer", header: map[string]string{"Authorization": "Bearer alex@example.com"}, status: http.StatusNoContent, user: "alex@example.com"},
		{name: "x-user-id", header: map[string]string{"X-User-ID": "priya@example.com"}, status: http.StatusNoContent, user: "priya@example.com"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "malformed", header: map[string]string{"Authorization": "Token abc"}, status: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if seen != tc.user {
				t.Fatalf("user = %q, want %q", seen, tc.user)
			}
		})
	}
}
