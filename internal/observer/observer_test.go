package observer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

const testDebounce = 20 * time.Millisecond

type harness struct {
	bus  *ipc.Bus
	feed *songfeed.Feed
	obs  *Observer

	mu      sync.Mutex
	changes []models.PlayerState
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{bus: ipc.NewBus(nil)}
	h.feed = songfeed.New(h.bus, nil)
	h.obs = New(h.bus, h.feed, opts)

	h.obs.OnChange(func(s models.PlayerState) {
		h.mu.Lock()
		h.changes = append(h.changes, s)
		h.mu.Unlock()
	})

	t.Cleanup(func() {
		h.obs.Close()
		h.feed.Close()
		h.bus.Close()
	})
	return h
}

func (h *harness) changeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.changes)
}

func (h *harness) lastChange(t *testing.T) models.PlayerState {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.changes) == 0 {
		t.Fatal("no changes recorded")
	}
	return h.changes[len(h.changes)-1]
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestObserverDeduplication(t *testing.T) {
	h := newHarness(t, Options{Debounce: -1})

	song := models.SongInfo{VideoID: "a1", IsPaused: false}
	h.feed.Emit(songfeed.Event{Kind: songfeed.PlayOrPaused, Song: song})
	h.feed.Emit(songfeed.Event{Kind: songfeed.PlayOrPaused, Song: song})

	if got := h.changeCount(); got != 1 {
		t.Errorf("identical snapshots should notify exactly once, got %d", got)
	}

	state := h.lastChange(t)
	if !state.IsPlaying || state.IsPaused || !state.HasCurrentSong {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestObserverDebounce(t *testing.T) {
	t.Run("BurstCoalesced", func(t *testing.T) {
		h := newHarness(t, Options{Debounce: testDebounce})

		// Three repeat flickers inside one window: only the last survives.
		h.bus.Send(ipc.ChanRepeatChanged, ipc.RepeatChanged{Mode: "ALL"})
		h.bus.Send(ipc.ChanRepeatChanged, ipc.RepeatChanged{Mode: "NONE"})
		h.bus.Send(ipc.ChanRepeatChanged, ipc.RepeatChanged{Mode: "ONE"})

		if got := h.changeCount(); got != 0 {
			t.Errorf("expected no notification before the window elapses, got %d", got)
		}

		waitFor(t, time.Second, func() bool { return h.changeCount() == 1 })

		if mode := h.lastChange(t).RepeatMode; mode != models.RepeatOne {
			t.Errorf("latest value should win, got %s", mode)
		}
	})

	t.Run("BurstAcrossFieldsMerges", func(t *testing.T) {
		h := newHarness(t, Options{Debounce: testDebounce})

		h.bus.Send(ipc.ChanShuffleChanged, ipc.ShuffleChanged{IsShuffled: true})
		h.bus.Send(ipc.ChanLikeStatusChanged, ipc.LikeStatus{VideoID: "a1", IsLiked: true})

		waitFor(t, time.Second, func() bool { return h.changeCount() == 1 })

		state := h.lastChange(t)
		if !state.IsShuffled || !state.IsLiked || !state.CanLike {
			t.Errorf("burst across fields should merge, got %+v", state)
		}
	})
}

func TestObserverVideoSrcChanged(t *testing.T) {
	h := newHarness(t, Options{Debounce: testDebounce})

	// The renderer answers the asynchronous like re-query.
	h.bus.HandleInvoke(ipc.ChanGetLikeStatus, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req ipc.LikeStatus
		_ = json.Unmarshal(payload, &req)
		return ipc.LikeStatus{VideoID: req.VideoID, IsLiked: true}, nil
	})

	// Establish a liked song first.
	h.bus.Send(ipc.ChanLikeStatusChanged, ipc.LikeStatus{VideoID: "a1", IsLiked: true})
	waitFor(t, time.Second, func() bool { return h.changeCount() == 1 })

	// Track change resets the like flag, then the re-query restores it.
	h.feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: models.SongInfo{VideoID: "b2"}})

	waitFor(t, time.Second, func() bool {
		return h.changeCount() >= 2
	})
	if state := h.obs.State(); state.IsLiked && !state.HasCurrentSong {
		t.Errorf("expected like reset on src change, got %+v", state)
	}

	waitFor(t, time.Second, func() bool {
		s := h.obs.State()
		return s.IsLiked && s.CanLike
	})
}

func TestObserverClose(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		h := newHarness(t, Options{Debounce: testDebounce})

		// Arm the debounce timer, then close before it fires.
		h.bus.Send(ipc.ChanShuffleChanged, ipc.ShuffleChanged{IsShuffled: true})
		if !h.obs.TimerArmed() {
			t.Fatal("expected debounce timer armed")
		}

		h.obs.Close()
		h.obs.Close()

		if h.obs.TimerArmed() {
			t.Error("expected no pending timers after close")
		}
		if h.obs.ListenerCount() != 0 {
			t.Error("expected no listeners after close")
		}

		time.Sleep(2 * testDebounce)
		if got := h.changeCount(); got != 0 {
			t.Errorf("no notification may arrive after close, got %d", got)
		}
	})

	t.Run("SignalsAfterCloseIgnored", func(t *testing.T) {
		h := newHarness(t, Options{Debounce: -1})
		h.obs.Close()

		h.feed.Emit(songfeed.Event{Kind: songfeed.PlayOrPaused, Song: models.SongInfo{VideoID: "a1"}})

		if got := h.changeCount(); got != 0 {
			t.Errorf("closed observer must ignore signals, got %d changes", got)
		}
	})
}

func TestObserverPolling(t *testing.T) {
	h := newHarness(t, Options{Debounce: -1, PollInterval: 10 * time.Millisecond})

	var mu sync.Mutex
	refreshes := 0
	h.bus.On(ipc.ChanRefreshLikeStatus, func(json.RawMessage) {
		mu.Lock()
		refreshes++
		mu.Unlock()
	})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return refreshes >= 2
	})
}

func TestObserverMalformedPayloads(t *testing.T) {
	h := newHarness(t, Options{Debounce: -1})

	h.bus.Send(ipc.ChanRepeatChanged, ipc.RepeatChanged{Mode: "SIDEWAYS"})
	h.bus.Send(ipc.ChanShuffleChanged, "not an object")

	if got := h.changeCount(); got != 0 {
		t.Errorf("malformed payloads must be dropped, got %d changes", got)
	}
	if state := h.obs.State(); state != (models.PlayerState{}) {
		t.Errorf("state must stay stale on bad input, got %+v", state)
	}
}
