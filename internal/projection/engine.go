package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/store"
)

// Engine keeps an in-memory, sorted, fully-denormalized view of all events
// (with live attendance data) consistent with the store's event and RSVP
// collections, and a separately-ordered banner list consistent with the
// banner collection.
//
// On every events snapshot it re-reads each event's RSVP subcollection from
// scratch (fanned out concurrently), derives the attendee set, drops events
// whose stored time cannot be parsed, sorts ascending by parsed time, and
// replaces the published projection wholesale. Consumers never observe a
// partially-updated list, and a projection still in flight when a newer
// snapshot arrives is discarded rather than published.
type Engine struct {
	store store.Store
	log   *zap.Logger

	// OnBannersChanged, if set before Start, is invoked with the new banner
	// count each time the banner list is replaced.
	OnBannersChanged func(count int)

	// OnStreamError, if set before Start, receives subscription failures.
	// The engine does not retry a dead subscription.
	OnStreamError func(err error)

	mu        sync.RWMutex
	events    []models.ProjectedEvent
	banners   []models.Banner
	arrived   uint64 // sequence of the most recently arrived events snapshot
	published uint64 // sequence behind the currently published projection

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	unsubEvents  store.Unsubscribe
	unsubBanners store.Unsubscribe
}

// New returns an engine reading from st. Call Start to begin subscribing.
func New(st store.Store, log *zap.Logger) *Engine {
	return &Engine{
		store:    st,
		log:      log,
		events:   []models.ProjectedEvent{},
		banners:  []models.Banner{},
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Start opens the event and banner subscriptions. The initial snapshots are
// delivered (and projected) before or shortly after Start returns, depending
// on the store.
func (e *Engine) Start(ctx context.Context) error {
	unsubEvents, err := e.store.SubscribeEvents(ctx, e.onEventsSnapshot, e.streamError)
	if err != nil {
		return fmt.Errorf("subscribe events: %w", err)
	}
	e.unsubEvents = unsubEvents

	unsubBanners, err := e.store.SubscribeBanners(ctx, e.onBannersSnapshot, e.streamError)
	if err != nil {
		unsubEvents()
		return fmt.Errorf("subscribe banners: %w", err)
	}
	e.unsubBanners = unsubBanners
	return nil
}

// Close stops both subscriptions.
func (e *Engine) Close() {
	if e.unsubEvents != nil {
		e.unsubEvents()
	}
	if e.unsubBanners != nil {
		e.unsubBanners()
	}
}

func (e *Engine) streamError(err error) {
	e.log.Error("subscription failed", zap.Error(err))
	if e.OnStreamError != nil {
		e.OnStreamError(err)
	}
}

// onEventsSnapshot assigns the snapshot its arrival sequence number and
// projects it off the delivery goroutine, so a slow fan-out never blocks the
// stream.
func (e *Engine) onEventsSnapshot(ctx context.Context, docs []*models.Event) {
	e.mu.Lock()
	e.arrived++
	seq := e.arrived
	e.mu.Unlock()

	go e.project(ctx, seq, docs)
}

func (e *Engine) project(ctx context.Context, seq uint64, docs []*models.Event) {
	projected := make([]models.ProjectedEvent, 0, len(docs))
	for _, doc := range docs {
		start, err := models.ParseStartsAt(doc.StartsAt)
		if err != nil {
			// Unparseable times drop the event from the projection
			// silently; the stored document is untouched.
			e.log.Debug("dropping event with unparseable time",
				zap.String("event_id", doc.ID), zap.String("starts_at", doc.StartsAt))
			continue
		}
		projected = append(projected, models.ProjectedEvent{
			Event:     *doc,
			StartTime: start,
			Attendees: []string{},
		})
	}

	var wg sync.WaitGroup
	for i := range projected {
		wg.Add(1)
		go func(pe *models.ProjectedEvent) {
			defer wg.Done()
			rsvps, err := e.store.ListRSVPs(ctx, pe.ID)
			if err != nil {
				// One failed read must not abort the rest of the snapshot.
				// The event shows as empty until the next projection.
				e.log.Warn("rsvp read failed",
					zap.String("event_id", pe.ID), zap.Error(err))
				return
			}
			seen := make(map[string]struct{}, len(rsvps))
			attendees := make([]string, 0, len(rsvps))
			for _, r := range rsvps {
				if _, ok := seen[r.UserID]; ok {
					continue
				}
				seen[r.UserID] = struct{}{}
				attendees = append(attendees, r.UserID)
			}
			pe.Attendees = attendees
			pe.AttendeeCount = len(attendees)
		}(&projected[i])
	}
	wg.Wait()

	// Stable sort keeps document order for equal start times.
	sort.SliceStable(projected, func(i, j int) bool {
		return projected[i].StartTime.Before(projected[j].StartTime)
	})

	e.mu.Lock()
	if seq != e.arrived || seq < e.published {
		// Superseded while the fan-out was in flight.
		e.mu.Unlock()
		return
	}
	e.events = projected
	e.published = seq
	e.mu.Unlock()

	e.Broadcast()
}

// onBannersSnapshot replaces the banner list verbatim, preserving the
// store's order.
func (e *Engine) onBannersSnapshot(ctx context.Context, docs []*models.Banner) {
	banners := make([]models.Banner, len(docs))
	for i, b := range docs {
		banners[i] = *b
	}

	e.mu.Lock()
	e.banners = banners
	e.mu.Unlock()

	if e.OnBannersChanged != nil {
		e.OnBannersChanged(len(banners))
	}
	e.Broadcast()
}

// Events returns the current projection with ViewerAttending resolved for
// the given viewer. The returned slice is the caller's to keep.
func (e *Engine) Events(viewerID string) []models.ProjectedEvent {
	e.mu.RLock()
	src := e.events
	e.mu.RUnlock()

	out := make([]models.ProjectedEvent, len(src))
	for i, ev := range src {
		ev.ViewerAttending = attending(ev.Attendees, viewerID)
		out[i] = ev
	}
	return out
}

// Banners returns the current banner list. The slice is replaced, never
// mutated, so sharing it is safe.
func (e *Engine) Banners() []models.Banner {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.banners
}

// Subscribe registers for a signal on every publish. The channel has a
// one-slot buffer; coalesced signals mean "re-read the projection", not one
// signal per change.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.watchMu.Lock()
	e.watchers[ch] = struct{}{}
	e.watchMu.Unlock()

	return ch, func() {
		e.watchMu.Lock()
		delete(e.watchers, ch)
		e.watchMu.Unlock()
	}
}

// Broadcast wakes every subscriber. Called internally after each publish and
// externally on a timer so clock-driven views (the imminent window) stay
// fresh for connected clients.
func (e *Engine) Broadcast() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	for ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func attending(attendees []string, viewerID string) bool {
	for _, id := range attendees {
		if id == viewerID {
			return true
		}
	}
	return false
}
