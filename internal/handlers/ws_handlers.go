package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/projection"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin in deployment; origin enforcement belongs to
	// the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type livePayload struct {
	Events   []models.ProjectedEvent `json:"events"`
	Imminent []models.ProjectedEvent `json:"imminent"`
	Banners  []models.Banner         `json:"banners"`
}

// LiveUpdates upgrades the connection and pushes the full projection to the
// client on every engine publish, starting with the current state. Each
// payload is complete; clients replace, never patch.
func LiveUpdates(engine *projection.Engine, window time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := ViewerID(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		updates, cancel := engine.Subscribe()
		defer cancel()

		// The read loop only detects the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func() error {
			events := engine.Events(viewer)
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return conn.WriteJSON(livePayload{
				Events:   events,
				Imminent: projection.Imminent(events, time.Now(), window),
				Banners:  engine.Banners(),
			})
		}

		if err := send(); err != nil {
			return
		}
		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case <-updates:
				if err := send(); err != nil {
					return
				}
			}
		}
	}
}
