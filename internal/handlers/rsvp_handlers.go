package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/store"
)

// ToggleRSVP flips the viewer's attendance for an event: if an RSVP record
// exists for the viewer it is deleted, otherwise one is created. The record
// read keeps the decision on the store rather than the projection, which may
// not have published the previous toggle yet. Two rapid toggles still race
// at the write and the last write wins.
// Path: /api/events/{id}/rsvp
func ToggleRSVP(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := ViewerID(r)
		eventID := eventIDFromPath(r.URL.Path)
		if eventID == "" {
			RespondError(w, http.StatusBadRequest, "event id missing in url path")
			return
		}

		attending := true
		if _, err := st.GetRSVP(r.Context(), eventID, viewer); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("rsvp lookup failed",
					zap.String("event_id", eventID), zap.String("viewer", viewer), zap.Error(err))
				RespondError(w, http.StatusInternalServerError, "failed to update rsvp")
				return
			}
			attending = false
		}

		var err error
		if attending {
			err = st.DeleteRSVP(r.Context(), eventID, viewer)
		} else {
			err = st.PutRSVP(r.Context(), &models.RSVP{
				EventID:   eventID,
				UserID:    viewer,
				CreatedAt: time.Now().UTC(),
			})
		}
		if err != nil {
			log.Error("rsvp toggle failed",
				zap.String("event_id", eventID), zap.String("viewer", viewer), zap.Error(err))
			RespondError(w, http.StatusInternalServerError, "failed to update rsvp")
			return
		}

		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"event_id":  eventID,
			"attending": !attending,
		})
	}
}
