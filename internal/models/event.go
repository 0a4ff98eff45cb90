package models

import (
	"fmt"
	"time"
)

// Event represents one entry on the public board.
// StartsAt is kept verbatim as the string the creator submitted and is only
// parsed at projection time; an event whose StartsAt cannot be parsed is
// excluded from the projected list rather than surfaced as an error.
// Events are created and deleted, never updated in place.
type Event struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	StartsAt    string    `bson:"starts_at" json:"starts_at"`
	CreatedBy   string    `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// startsAtLayouts are tried in order when parsing Event.StartsAt.
// The first is the canonical form; the rest cover what browser date inputs
// and hand-typed values tend to produce.
var startsAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04", // HTML datetime-local
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStartsAt parses a loosely-stored event time string.
func ParseStartsAt(s string) (time.Time, error) {
	for _, layout := range startsAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized event time %q", s)
}
