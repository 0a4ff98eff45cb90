package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventboard/app/internal/identity"
)

const viewerCookieName = "viewer_token"

type contextKey string

const viewerContextKey contextKey = "viewer"

// ViewerMiddleware resolves the request's viewer identity once per request.
// A bearer token takes precedence; otherwise the identity cookie is used;
// otherwise a fresh anonymous identity is minted and set as a cookie, so the
// same browser keeps a stable identifier across visits.
func ViewerMiddleware(provider *identity.Provider, log *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			viewerID := ""
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				id, err := provider.Verify(strings.TrimPrefix(auth, "Bearer "))
				if err != nil {
					RespondError(w, http.StatusUnauthorized, "invalid identity token")
					return
				}
				viewerID = id
			} else if cookie, err := r.Cookie(viewerCookieName); err == nil {
				// A garbled cookie falls through to a fresh anonymous
				// identity rather than blocking the request.
				if id, verifyErr := provider.Verify(cookie.Value); verifyErr == nil {
					viewerID = id
				}
			}

			if viewerID == "" {
				viewerID = provider.NewAnonymousID()
				token, err := provider.Issue(viewerID)
				if err != nil {
					log.Error("could not establish identity", zap.Error(err))
					RespondError(w, http.StatusInternalServerError, "could not establish identity")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     viewerCookieName,
					Value:    token,
					Path:     "/",
					Expires:  time.Now().Add(365 * 24 * time.Hour),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), viewerContextKey, viewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// ViewerID returns the identity resolved by ViewerMiddleware, or the empty
// string when the middleware did not run.
func ViewerID(r *http.Request) string {
	id, _ := r.Context().Value(viewerContextKey).(string)
	return id
}
