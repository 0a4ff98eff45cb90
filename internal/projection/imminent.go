package projection

import (
	"time"

	"github.com/eventboard/app/internal/models"
)

// Imminent selects events starting strictly after now and strictly before
// now+window. Pure; evaluated against the live clock at each call, so a
// soon-to-start event appears as soon as anyone asks, not only when the
// underlying list happens to change.
func Imminent(events []models.ProjectedEvent, now time.Time, window time.Duration) []models.ProjectedEvent {
	cutoff := now.Add(window)
	out := []models.ProjectedEvent{}
	for _, ev := range events {
		if ev.StartTime.After(now) && ev.StartTime.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}
