// package songfeed delivers song metadata events from the renderer to
// host-side subscribers: a play/pause edge or a change of the underlying
// video source.
package songfeed

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// EventKind distinguishes the two feed events.
type EventKind int

const (
	// PlayOrPaused fires when playback starts or stops on the current song.
	PlayOrPaused EventKind = iota
	// VideoSrcChanged fires when the player moves to a different song.
	VideoSrcChanged
)

// Channel names carrying feed events over the bridge.
const (
	ChanPlayOrPaused    = "ytmd:play-or-paused"
	ChanVideoSrcChanged = "ytmd:video-src-changed"
)

// Event pairs a kind with the song it describes.
type Event struct {
	Kind EventKind
	Song models.SongInfo
}

// Callback receives feed events. Callbacks run synchronously in registration
// order; a panicking callback is recovered and logged so one misbehaving
// plugin cannot starve the rest.
type Callback func(Event)

// Feed is the callback registry. It subscribes to the song channels on a bus
// and fans events out to registered callbacks.
type Feed struct {
	mu      sync.Mutex
	subs    map[int]Callback
	nextSub int
	offs    []func()
	logger  *log.Logger
	current models.SongInfo
	hasSong bool
}

// New creates a Feed attached to the given bus.
func New(bus ipc.Sender, logger *log.Logger) *Feed {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	f := &Feed{
		subs:   make(map[int]Callback),
		logger: logger.With("component", "songfeed"),
	}

	f.offs = append(f.offs,
		bus.On(ChanPlayOrPaused, func(payload json.RawMessage) {
			f.handle(PlayOrPaused, payload)
		}),
		bus.On(ChanVideoSrcChanged, func(payload json.RawMessage) {
			f.handle(VideoSrcChanged, payload)
		}),
	)

	return f
}

// Subscribe registers a callback and returns its unsubscribe func.
func (f *Feed) Subscribe(cb Callback) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	f.subs[id] = cb

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Current returns the last observed song and whether one has been seen.
func (f *Feed) Current() (models.SongInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.hasSong
}

// Close detaches the feed from the bus and drops all callbacks.
func (f *Feed) Close() {
	f.mu.Lock()
	offs := f.offs
	f.offs = nil
	f.subs = make(map[int]Callback)
	f.mu.Unlock()

	for _, off := range offs {
		off()
	}
}

// Emit dispatches an event directly, bypassing the bus. Useful for local
// integrations and tests.
func (f *Feed) Emit(ev Event) {
	f.mu.Lock()
	f.current = ev.Song
	f.hasSong = true
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	cbs := make([]Callback, 0, len(ids))
	for _, id := range ids {
		cbs = append(cbs, f.subs[id])
	}
	f.mu.Unlock()

	for _, cb := range cbs {
		f.safeCall(cb, ev)
	}
}

func (f *Feed) handle(kind EventKind, payload json.RawMessage) {
	var song models.SongInfo
	if err := json.Unmarshal(payload, &song); err != nil {
		f.logger.Error("failed to decode song payload", "err", err)
		return
	}
	f.Emit(Event{Kind: kind, Song: song})
}

func (f *Feed) safeCall(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("song feed callback panicked", "panic", r)
		}
	}()
	cb(ev)
}
