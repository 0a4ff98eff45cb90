package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventboard/app/internal/admin"
)

const adminCookieName = "admin_session"

type adminLoginRequest struct {
	PIN string `json:"pin"`
}

// AdminLogin checks the submitted PIN against the configured shared secret
// and, on a match, issues an admin session cookie. This enables management
// controls only; it is not an authorization mechanism.
func AdminLogin(sessions *admin.Sessions, expectedPIN string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := adminLoginRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if !admin.Check(req.PIN, expectedPIN) {
			RespondError(w, http.StatusUnauthorized, "incorrect pin")
			return
		}

		token := sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    token,
			Path:     "/",
			Expires:  time.Now().Add(24 * time.Hour),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		RespondJSON(w, http.StatusOK, map[string]bool{"admin": true})
	}
}

// AdminLogout ends the admin session, if any, and expires the cookie.
func AdminLogout(sessions *admin.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(adminCookieName); err == nil {
			sessions.Delete(cookie.Value)
			http.SetCookie(w, &http.Cookie{
				Name:     adminCookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}
		RespondJSON(w, http.StatusOK, map[string]bool{"admin": false})
	}
}

// AdminMiddleware protects management endpoints behind an active admin
// session.
func AdminMiddleware(sessions *admin.Sessions) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r, sessions) {
				RespondError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// IsAdmin reports whether the request carries an active admin session.
func IsAdmin(r *http.Request, sessions *admin.Sessions) bool {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil {
		return false
	}
	return sessions.Valid(cookie.Value)
}
