package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/projection"
	"github.com/eventboard/app/internal/store"
)

// ListEvents returns the projected event list for the resolved viewer plus
// the imminent sublist, evaluated against the current clock.
func ListEvents(engine *projection.Engine, window time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := engine.Events(ViewerID(r))
		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"events":   events,
			"imminent": projection.Imminent(events, time.Now(), window),
		})
	}
}

type createEventRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at" validate:"required"`
}

// CreateEvent handles admin event creation. StartsAt is stored verbatim;
// a value that never parses simply never appears in the projection, so it is
// not rejected here.
func CreateEvent(st store.Store, validate *validator.Validate, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createEventRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			RespondError(w, http.StatusBadRequest, "title and starts_at are required")
			return
		}

		event := &models.Event{
			Title:       req.Title,
			Description: req.Description,
			StartsAt:    req.StartsAt,
			CreatedBy:   ViewerID(r),
		}
		created, err := st.CreateEvent(r.Context(), event)
		if err != nil {
			log.Error("create event failed", zap.Error(err))
			RespondError(w, http.StatusInternalServerError, "failed to create event")
			return
		}
		RespondJSON(w, http.StatusCreated, created)
	}
}

// DeleteEvent handles admin deletion of an event and its RSVPs.
// Path: /api/events/{id}
func DeleteEvent(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := eventIDFromPath(r.URL.Path)
		if eventID == "" {
			RespondError(w, http.StatusBadRequest, "event id missing in url path")
			return
		}

		if err := st.DeleteEvent(r.Context(), eventID); err != nil {
			log.Error("delete event failed", zap.String("event_id", eventID), zap.Error(err))
			RespondError(w, http.StatusInternalServerError, "failed to delete event")
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"deleted": eventID})
	}
}

// eventIDFromPath extracts {id} from /api/events/{id} or
// /api/events/{id}/rsvp.
func eventIDFromPath(path string) string {
	path = strings.TrimSuffix(path, "/rsvp")
	parts := strings.Split(strings.TrimPrefix(path, "/api/events/"), "/")
	if len(parts) != 1 {
		return ""
	}
	return parts[0]
}
