package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventboard/app/internal/models"
)

// Memory is an in-memory Store. It backs tests the way an in-memory database
// would: every mutation synchronously delivers a fresh snapshot to active
// subscribers, so projection behavior can be exercised without a running
// MongoDB.
type Memory struct {
	mu         sync.Mutex
	events     map[string]*models.Event
	eventOrder []string
	banners    map[string]*models.Banner
	rsvps      map[string]*models.RSVP

	eventSubs  map[int]*memoryEventSub
	bannerSubs map[int]*memoryBannerSub
	nextSub    int

	// RSVPHook, when set, runs at the start of every ListRSVPs call. Tests
	// use it to inject per-event read failures or to stall a read.
	RSVPHook func(eventID string) error
}

type memoryEventSub struct {
	ctx context.Context
	fn  EventsSnapshotFunc
}

type memoryBannerSub struct {
	ctx context.Context
	fn  BannersSnapshotFunc
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		events:     make(map[string]*models.Event),
		banners:    make(map[string]*models.Banner),
		rsvps:      make(map[string]*models.RSVP),
		eventSubs:  make(map[int]*memoryEventSub),
		bannerSubs: make(map[int]*memoryBannerSub),
	}
}

func (m *Memory) SubscribeEvents(ctx context.Context, fn EventsSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.eventSubs[id] = &memoryEventSub{ctx: ctx, fn: fn}
	snapshot := m.eventSnapshotLocked()
	m.mu.Unlock()

	fn(ctx, snapshot)
	return func() {
		m.mu.Lock()
		delete(m.eventSubs, id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) SubscribeBanners(ctx context.Context, fn BannersSnapshotFunc, errFn ErrorFunc) (Unsubscribe, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.bannerSubs[id] = &memoryBannerSub{ctx: ctx, fn: fn}
	snapshot := m.bannerSnapshotLocked()
	m.mu.Unlock()

	fn(ctx, snapshot)
	return func() {
		m.mu.Lock()
		delete(m.bannerSubs, id)
		m.mu.Unlock()
	}, nil
}

// eventSnapshotLocked copies the full event set in insertion order.
func (m *Memory) eventSnapshotLocked() []*models.Event {
	out := make([]*models.Event, 0, len(m.eventOrder))
	for _, id := range m.eventOrder {
		copied := *m.events[id]
		out = append(out, &copied)
	}
	return out
}

// bannerSnapshotLocked copies the full banner set, newest first.
func (m *Memory) bannerSnapshotLocked() []*models.Banner {
	out := make([]*models.Banner, 0, len(m.banners))
	for _, b := range m.banners {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// notifyEvents delivers a fresh snapshot to every event subscriber. Called
// without the lock held so subscribers may call back into the store.
func (m *Memory) notifyEvents() {
	m.mu.Lock()
	subs := make([]*memoryEventSub, 0, len(m.eventSubs))
	for _, s := range m.eventSubs {
		subs = append(subs, s)
	}
	snapshot := m.eventSnapshotLocked()
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(s.ctx, snapshot)
	}
}

func (m *Memory) notifyBanners() {
	m.mu.Lock()
	subs := make([]*memoryBannerSub, 0, len(m.bannerSubs))
	for _, s := range m.bannerSubs {
		subs = append(subs, s)
	}
	snapshot := m.bannerSnapshotLocked()
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(s.ctx, snapshot)
	}
}

func (m *Memory) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	copied := *event

	m.mu.Lock()
	m.events[copied.ID] = &copied
	m.eventOrder = append(m.eventOrder, copied.ID)
	m.mu.Unlock()

	m.notifyEvents()
	return event, nil
}

func (m *Memory) DeleteEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	delete(m.events, eventID)
	for i, id := range m.eventOrder {
		if id == eventID {
			m.eventOrder = append(m.eventOrder[:i], m.eventOrder[i+1:]...)
			break
		}
	}
	for key, r := range m.rsvps {
		if r.EventID == eventID {
			delete(m.rsvps, key)
		}
	}
	m.mu.Unlock()

	m.notifyEvents()
	return nil
}

func (m *Memory) ListRSVPs(ctx context.Context, eventID string) ([]*models.RSVP, error) {
	if m.RSVPHook != nil {
		if err := m.RSVPHook(eventID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.RSVP{}
	for _, r := range m.rsvps {
		if r.EventID == eventID {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) GetRSVP(ctx context.Context, eventID, userID string) (*models.RSVP, error) {
	m.mu.Lock()
	r, ok := m.rsvps[rsvpDocID(eventID, userID)]
	if ok {
		copied := *r
		r = &copied
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *Memory) PutRSVP(ctx context.Context, rsvp *models.RSVP) error {
	if rsvp.CreatedAt.IsZero() {
		rsvp.CreatedAt = time.Now().UTC()
	}
	copied := *rsvp

	m.mu.Lock()
	m.rsvps[rsvpDocID(copied.EventID, copied.UserID)] = &copied
	m.mu.Unlock()

	m.notifyEvents()
	return nil
}

func (m *Memory) DeleteRSVP(ctx context.Context, eventID, userID string) error {
	m.mu.Lock()
	delete(m.rsvps, rsvpDocID(eventID, userID))
	m.mu.Unlock()

	m.notifyEvents()
	return nil
}

func (m *Memory) CreateBanner(ctx context.Context, banner *models.Banner) (*models.Banner, error) {
	if banner.ID == "" {
		banner.ID = uuid.NewString()
	}
	if banner.CreatedAt.IsZero() {
		banner.CreatedAt = time.Now().UTC()
	}
	copied := *banner

	m.mu.Lock()
	m.banners[copied.ID] = &copied
	m.mu.Unlock()

	m.notifyBanners()
	return banner, nil
}

func (m *Memory) DeleteBanner(ctx context.Context, bannerID string) error {
	m.mu.Lock()
	delete(m.banners, bannerID)
	m.mu.Unlock()

	m.notifyBanners()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}
