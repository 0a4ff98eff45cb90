package models

import "time"

// RSVP records that a user is attending an event. There is at most one per
// (event, user) pair and the existence of the record is the sole truth of
// attendance; counts are always derived by enumerating records, never stored.
type RSVP struct {
	EventID   string    `bson:"event_id" json:"event_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
