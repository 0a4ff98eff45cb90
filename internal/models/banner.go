package models

import "time"

// Banner is a carousel image shown above the event list. Banners are listed
// newest first; the store supplies them already ordered and the order is
// preserved verbatim downstream.
type Banner struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	ImageURL  string    `bson:"image_url" json:"image_url"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
