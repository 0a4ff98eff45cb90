package models

import "time"

// ProjectedEvent is the derived, presentation-ready view of an Event: the
// stored fields plus the parsed start time and live attendance data. It is
// recomputed from scratch on every change notification and never patched in
// place. ViewerAttending is filled in per request for the resolved viewer.
type ProjectedEvent struct {
	Event
	StartTime       time.Time `json:"start_time"`
	Attendees       []string  `json:"attendees"`
	AttendeeCount   int       `json:"attendee_count"`
	ViewerAttending bool      `json:"viewer_attending"`
}
