package lyricsview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

type fakeResolver struct {
	mu     sync.Mutex
	sheets map[string]*models.Lyrics
	calls  int
}

func (r *fakeResolver) Lookup(ctx context.Context, song models.SongInfo) (*models.Lyrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if sheet, ok := r.sheets[song.VideoID]; ok {
		return sheet, nil
	}
	return nil, shared.ErrLyricsNotFound
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type harness struct {
	bus      *ipc.Bus
	feed     *songfeed.Feed
	plugin   *Plugin
	resolver *fakeResolver
	cleanups int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := shared.NewLogger(nil)
	h := &harness{
		bus: ipc.NewBus(logger),
		resolver: &fakeResolver{sheets: map[string]*models.Lyrics{
			"vid123": {VideoID: "vid123", Title: "Song", Artist: "Artist", Source: "fake",
				Lines: []models.LyricLine{{Text: "hello"}}},
		}},
	}
	h.feed = songfeed.New(h.bus, logger)
	h.plugin = NewWithResolver(func(plugins.Context) (Resolver, func(), error) {
		return h.resolver, func() { h.cleanups++ }, nil
	})
	t.Cleanup(func() {
		h.plugin.Stop()
		h.feed.Close()
		h.bus.Close()
	})

	err := h.plugin.Start(plugins.Context{
		Config: shared.DefaultConfig(),
		Bus:    h.bus,
		Feed:   h.feed,
		Logger: logger,
		Quit:   func() {},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func songPayload(videoID string) models.SongInfo {
	return models.SongInfo{Title: "Song", Artist: "Artist", VideoID: videoID}
}

func TestPrefetchOnSongChange(t *testing.T) {
	h := newHarness(t)

	h.feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("vid123")})
	waitFor(t, func() bool {
		_, ok := h.plugin.Current()
		return ok
	})

	sheet, _ := h.plugin.Current()
	if sheet.VideoID != "vid123" {
		t.Errorf("unexpected sheet %+v", sheet)
	}
}

func TestPlayPauseDoesNotPrefetch(t *testing.T) {
	h := newHarness(t)

	h.feed.Emit(songfeed.Event{Kind: songfeed.PlayOrPaused, Song: songPayload("vid123")})
	time.Sleep(50 * time.Millisecond)
	if h.resolver.callCount() != 0 {
		t.Errorf("expected no lookups, got %d", h.resolver.callCount())
	}
}

func TestUnknownSongLeavesCurrentEmpty(t *testing.T) {
	h := newHarness(t)

	h.feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("missing")})
	waitFor(t, func() bool { return h.resolver.callCount() == 1 })

	if _, ok := h.plugin.Current(); ok {
		t.Error("expected no current sheet")
	}
}

func TestGetLyricsInvoke(t *testing.T) {
	h := newHarness(t)

	h.feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("vid123")})
	waitFor(t, func() bool {
		_, ok := h.plugin.Current()
		return ok
	})

	t.Run("Current Sheet", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		raw, err := h.bus.Invoke(ctx, ipc.ChanGetLyrics, nil)
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}

		var sheet models.Lyrics
		if err := json.Unmarshal(raw, &sheet); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if sheet.VideoID != "vid123" || len(sheet.Lines) != 1 {
			t.Errorf("unexpected sheet %+v", sheet)
		}
	})

	t.Run("Explicit Song", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err := h.bus.Invoke(ctx, ipc.ChanGetLyrics, songPayload("missing"))
		if err == nil {
			t.Error("expected lookup failure for unknown song")
		}
	})
}

// gatedResolver blocks lookups for selected songs until their gate is closed,
// so tests can finish fetches out of order.
type gatedResolver struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	done  int
}

func (r *gatedResolver) Lookup(ctx context.Context, song models.SongInfo) (*models.Lyrics, error) {
	r.mu.Lock()
	gate := r.gates[song.VideoID]
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	r.done++
	r.mu.Unlock()
	return &models.Lyrics{VideoID: song.VideoID, Title: song.Title, Source: "fake"}, nil
}

func (r *gatedResolver) doneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func TestSlowPrefetchDoesNotOverwriteNewerSheet(t *testing.T) {
	logger := shared.NewLogger(nil)
	bus := ipc.NewBus(logger)
	defer bus.Close()
	feed := songfeed.New(bus, logger)
	defer feed.Close()

	oldGate := make(chan struct{})
	resolver := &gatedResolver{gates: map[string]chan struct{}{"old": oldGate}}
	p := NewWithResolver(func(plugins.Context) (Resolver, func(), error) {
		return resolver, nil, nil
	})
	err := p.Start(plugins.Context{
		Config: shared.DefaultConfig(),
		Bus:    bus,
		Feed:   feed,
		Logger: logger,
		Quit:   func() {},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	// The first song's fetch hangs; the second song's completes immediately.
	feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("old")})
	feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("new")})
	waitFor(t, func() bool {
		sheet, ok := p.Current()
		return ok && sheet.VideoID == "new"
	})

	// Let the first fetch finish late; its sheet must be dropped.
	close(oldGate)
	waitFor(t, func() bool { return resolver.doneCount() == 2 })
	time.Sleep(50 * time.Millisecond)

	sheet, ok := p.Current()
	if !ok || sheet.VideoID != "new" {
		t.Fatalf("current sheet = %+v, want the newer song's", sheet)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t)

	if err := h.plugin.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := h.plugin.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if h.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", h.cleanups)
	}

	before := h.resolver.callCount()
	h.feed.Emit(songfeed.Event{Kind: songfeed.VideoSrcChanged, Song: songPayload("vid123")})
	time.Sleep(50 * time.Millisecond)
	if h.resolver.callCount() != before {
		t.Error("lookup after stop")
	}
}

func TestFactoryErrorFailsStart(t *testing.T) {
	logger := shared.NewLogger(nil)
	bus := ipc.NewBus(logger)
	defer bus.Close()
	feed := songfeed.New(bus, logger)
	defer feed.Close()

	wantErr := errors.New("no database")
	p := NewWithResolver(func(plugins.Context) (Resolver, func(), error) {
		return nil, nil, wantErr
	})

	err := p.Start(plugins.Context{Config: shared.DefaultConfig(), Bus: bus, Feed: feed, Logger: logger})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
