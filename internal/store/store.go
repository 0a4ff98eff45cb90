package store

import (
	"context"
	"errors"

	"github.com/eventboard/app/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: document not found")

// Unsubscribe stops a running subscription. Safe to call more than once.
type Unsubscribe func()

// EventsSnapshotFunc receives the full current set of event documents, not a
// diff. It is invoked once with the initial contents and again after every
// change anywhere in the collection.
type EventsSnapshotFunc func(ctx context.Context, events []*models.Event)

// BannersSnapshotFunc receives the full current banner list, newest first.
type BannersSnapshotFunc func(ctx context.Context, banners []*models.Banner)

// ErrorFunc receives a subscription failure. Subscriptions are not retried
// internally; once the error is delivered the subscription is dead.
type ErrorFunc func(err error)

// Store is the document-store surface the application depends on. All paths
// are namespaced under a single deployment prefix; events own a nested RSVP
// collection keyed by (event, user).
type Store interface {
	SubscribeEvents(ctx context.Context, fn EventsSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error)
	SubscribeBanners(ctx context.Context, fn BannersSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error)

	// CreateEvent assigns an identifier and creation timestamp if unset.
	CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error)
	// DeleteEvent removes the event and its entire RSVP subcollection.
	DeleteEvent(ctx context.Context, eventID string) error

	// ListRSVPs reads an event's RSVP subcollection. One-shot, never cached.
	ListRSVPs(ctx context.Context, eventID string) ([]*models.RSVP, error)
	GetRSVP(ctx context.Context, eventID, userID string) (*models.RSVP, error)
	// PutRSVP upserts by (event, user). Last write wins; no ordering
	// guarantee beyond the store's own per-document write ordering.
	PutRSVP(ctx context.Context, rsvp *models.RSVP) error
	DeleteRSVP(ctx context.Context, eventID, userID string) error

	CreateBanner(ctx context.Context, banner *models.Banner) (*models.Banner, error)
	DeleteBanner(ctx context.Context, bannerID string) error

	Ping(ctx context.Context) error
}
