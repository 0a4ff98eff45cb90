package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/store"
)

func setupEngine(t *testing.T) (*store.Memory, *Engine) {
	t.Helper()
	mem := store.NewMemory()
	e := New(mem, zap.NewNop())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(e.Close)
	return mem, e
}

// waitFor polls until cond holds; projections are published asynchronously.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func createTestEvent(t *testing.T, mem *store.Memory, title, startsAt string) *models.Event {
	t.Helper()
	event, err := mem.CreateEvent(context.Background(), &models.Event{Title: title, StartsAt: startsAt})
	if err != nil {
		t.Fatalf("CreateEvent(%s) error = %v", title, err)
	}
	return event
}

func TestProjectionEmptyStore(t *testing.T) {
	_, e := setupEngine(t)

	waitFor(t, func() bool { return e.Events("viewer") != nil })

	if got := e.Events("viewer"); len(got) != 0 {
		t.Errorf("Events() = %v, want empty", got)
	}
	if got := e.Banners(); len(got) != 0 {
		t.Errorf("Banners() = %v, want empty", got)
	}
	if got := Imminent(e.Events("viewer"), time.Now(), 48*time.Hour); len(got) != 0 {
		t.Errorf("Imminent() = %v, want empty", got)
	}
}

func TestProjectionSortedByParsedTime(t *testing.T) {
	mem, e := setupEngine(t)

	// Created deliberately out of chronological order.
	late := createTestEvent(t, mem, "Late", "2026-12-01T20:00:00Z")
	early := createTestEvent(t, mem, "Early", "2026-10-01T20:00:00Z")
	middle := createTestEvent(t, mem, "Middle", "2026-11-01T20:00:00Z")

	waitFor(t, func() bool { return len(e.Events("viewer")) == 3 })

	got := e.Events("viewer")
	wantOrder := []string{early.ID, middle.ID, late.ID}
	for i, ev := range got {
		if ev.ID != wantOrder[i] {
			t.Errorf("Events()[%d].ID = %s (%s), want %s", i, ev.ID, ev.Title, wantOrder[i])
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartTime.Before(got[i-1].StartTime) {
			t.Errorf("Events() not ascending at index %d", i)
		}
	}
}

func TestProjectionDropsUnparseableTimes(t *testing.T) {
	mem, e := setupEngine(t)

	valid := createTestEvent(t, mem, "Valid", "2026-10-01T20:00:00Z")
	createTestEvent(t, mem, "Broken", "invalid-string")

	waitFor(t, func() bool { return len(e.Events("viewer")) == 1 })

	got := e.Events("viewer")
	if got[0].ID != valid.ID {
		t.Errorf("Events()[0].ID = %s, want %s", got[0].ID, valid.ID)
	}
	for _, ev := range got {
		if ev.Title == "Broken" {
			t.Error("event with unparseable time appeared in the projection")
		}
	}
}

func TestProjectionAttendance(t *testing.T) {
	mem, e := setupEngine(t)
	ctx := context.Background()

	event := createTestEvent(t, mem, "Picnic", "2026-10-01T12:00:00Z")
	waitFor(t, func() bool { return len(e.Events("user-1")) == 1 })

	eventAt := func(viewer string) models.ProjectedEvent {
		events := e.Events(viewer)
		if len(events) != 1 {
			t.Fatalf("Events() count = %d, want 1", len(events))
		}
		return events[0]
	}

	t.Run("rsvp raises the count by one and marks the viewer", func(t *testing.T) {
		if err := mem.PutRSVP(ctx, &models.RSVP{EventID: event.ID, UserID: "user-1"}); err != nil {
			t.Fatalf("PutRSVP() error = %v", err)
		}
		waitFor(t, func() bool { return eventAt("user-1").AttendeeCount == 1 })

		got := eventAt("user-1")
		if !got.ViewerAttending {
			t.Error("ViewerAttending = false for attending viewer")
		}
		if other := eventAt("user-2"); other.ViewerAttending {
			t.Error("ViewerAttending = true for a different viewer")
		}
	})

	t.Run("second attendee raises the count again", func(t *testing.T) {
		if err := mem.PutRSVP(ctx, &models.RSVP{EventID: event.ID, UserID: "user-2"}); err != nil {
			t.Fatalf("PutRSVP() error = %v", err)
		}
		waitFor(t, func() bool { return eventAt("user-1").AttendeeCount == 2 })
	})

	t.Run("cancel lowers the count by exactly one", func(t *testing.T) {
		if err := mem.DeleteRSVP(ctx, event.ID, "user-1"); err != nil {
			t.Fatalf("DeleteRSVP() error = %v", err)
		}
		waitFor(t, func() bool { return eventAt("user-2").AttendeeCount == 1 })

		if got := eventAt("user-1"); got.ViewerAttending {
			t.Error("ViewerAttending = true after cancel")
		}
	})

	t.Run("re-rsvp after cancel yields exactly one record", func(t *testing.T) {
		if err := mem.PutRSVP(ctx, &models.RSVP{EventID: event.ID, UserID: "user-1"}); err != nil {
			t.Fatalf("PutRSVP() error = %v", err)
		}
		waitFor(t, func() bool { return eventAt("user-1").AttendeeCount == 2 })

		rsvps, err := mem.ListRSVPs(ctx, event.ID)
		if err != nil {
			t.Fatalf("ListRSVPs() error = %v", err)
		}
		perUser := map[string]int{}
		for _, r := range rsvps {
			perUser[r.UserID]++
		}
		if perUser["user-1"] != 1 {
			t.Errorf("user-1 has %d rsvp records, want 1", perUser["user-1"])
		}
	})
}

func TestProjectionIsolatesFailedRSVPReads(t *testing.T) {
	mem, e := setupEngine(t)
	ctx := context.Background()

	healthy := createTestEvent(t, mem, "Healthy", "2026-10-01T20:00:00Z")
	broken := createTestEvent(t, mem, "Broken reads", "2026-10-02T20:00:00Z")

	mem.RSVPHook = func(eventID string) error {
		if eventID == broken.ID {
			return errors.New("simulated read failure")
		}
		return nil
	}

	if err := mem.PutRSVP(ctx, &models.RSVP{EventID: healthy.ID, UserID: "user-1"}); err != nil {
		t.Fatalf("PutRSVP() error = %v", err)
	}

	waitFor(t, func() bool {
		events := e.Events("user-1")
		return len(events) == 2 && events[0].AttendeeCount == 1
	})

	events := e.Events("user-1")
	for _, ev := range events {
		switch ev.ID {
		case healthy.ID:
			if ev.AttendeeCount != 1 || !ev.ViewerAttending {
				t.Errorf("healthy event projection = count %d attending %v, want 1/true",
					ev.AttendeeCount, ev.ViewerAttending)
			}
		case broken.ID:
			// The failed read defaults to empty attendance, it must not
			// remove the event or abort the snapshot.
			if ev.AttendeeCount != 0 || ev.ViewerAttending {
				t.Errorf("broken event projection = count %d attending %v, want 0/false",
					ev.AttendeeCount, ev.ViewerAttending)
			}
		}
	}
}

func TestProjectionDiscardsSupersededSnapshot(t *testing.T) {
	mem, e := setupEngine(t)

	entered := make(chan string, 8)
	release := make(chan struct{})
	mem.RSVPHook = func(eventID string) error {
		entered <- eventID
		<-release
		return nil
	}

	createTestEvent(t, mem, "First", "2026-10-01T20:00:00Z")
	<-entered // the first snapshot's fan-out is now parked mid-flight

	createTestEvent(t, mem, "Second", "2026-10-02T20:00:00Z")
	<-entered // the second snapshot's two reads park as well
	<-entered

	// Everything resumes at once; only the newest snapshot may publish.
	close(release)
	waitFor(t, func() bool { return len(e.Events("viewer")) == 2 })

	time.Sleep(50 * time.Millisecond)
	if got := len(e.Events("viewer")); got != 2 {
		t.Errorf("Events() count = %d after stale projection completed, want 2", got)
	}
}

func TestBannersReplacedVerbatim(t *testing.T) {
	mem := store.NewMemory()
	e := New(mem, zap.NewNop())

	var counts []int
	e.OnBannersChanged = func(n int) { counts = append(counts, n) }

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(e.Close)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	first, err := mem.CreateBanner(ctx, &models.Banner{ImageURL: "https://img.example/a.png", CreatedAt: base})
	if err != nil {
		t.Fatalf("CreateBanner() error = %v", err)
	}
	second, err := mem.CreateBanner(ctx, &models.Banner{ImageURL: "https://img.example/b.png", CreatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateBanner() error = %v", err)
	}

	waitFor(t, func() bool { return len(e.Banners()) == 2 })

	got := e.Banners()
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Errorf("Banners() order = [%s %s], want newest first [%s %s]",
			got[0].ID, got[1].ID, second.ID, first.ID)
	}

	wantCounts := []int{0, 1, 2}
	if len(counts) != len(wantCounts) {
		t.Fatalf("OnBannersChanged calls = %v, want %v", counts, wantCounts)
	}
	for i, n := range wantCounts {
		if counts[i] != n {
			t.Errorf("OnBannersChanged[%d] = %d, want %d", i, counts[i], n)
		}
	}
}

func TestSubscribeSignalsOnPublish(t *testing.T) {
	mem, e := setupEngine(t)

	ch, cancel := e.Subscribe()
	defer cancel()

	createTestEvent(t, mem, "Signal", "2026-10-01T20:00:00Z")

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after a publish")
	}
}
