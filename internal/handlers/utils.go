package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventboard/app/internal/store"
)

// RespondJSON writes v as a JSON response body with the given status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		// The status line is already on the wire; an encode failure here
		// can only be logged by the caller's middleware, if any.
		_ = json.NewEncoder(w).Encode(v)
	}
}

// RespondError writes a standard JSON error body.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// Health reports whether the document store is reachable.
func Health(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			RespondError(w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
