package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/eventboard/app/internal/identity"
)

func TestViewerMiddleware(t *testing.T) {
	provider := identity.NewProvider("test-secret")

	var seen string
	wrapped := ViewerMiddleware(provider, zap.NewNop())(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerID(r)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("mints an anonymous identity and cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()
		wrapped(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if seen == "" {
			t.Fatal("no viewer identity resolved")
		}

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == viewerCookieName {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("no viewer cookie set")
		}

		// Replaying the cookie keeps the same identity.
		first := seen
		req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.AddCookie(cookie)
		wrapped(httptest.NewRecorder(), req)
		if seen != first {
			t.Errorf("identity changed across requests: %q then %q", first, seen)
		}
	})

	t.Run("bearer token wins", func(t *testing.T) {
		token, err := provider.Issue("user-from-token")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		wrapped(httptest.NewRecorder(), req)
		if seen != "user-from-token" {
			t.Errorf("viewer = %q, want user-from-token", seen)
		}
	})

	t.Run("invalid bearer token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		wrapped(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("garbled cookie falls back to a fresh identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.AddCookie(&http.Cookie{Name: viewerCookieName, Value: "not-a-token"})
		rec := httptest.NewRecorder()
		wrapped(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if seen == "" {
			t.Error("no identity minted for garbled cookie")
		}
	})
}
