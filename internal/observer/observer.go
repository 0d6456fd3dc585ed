// package observer maintains the most recent PlayerState from renderer
// signals, deduplicates redundant updates, and fans changed snapshots out to
// listeners. Like/shuffle/repeat bursts are coalesced through a fixed
// debounce window so the native menu is not rebuilt many times per second
// during transient UI flicker.
package observer

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

// DefaultDebounce is the coalescing window for like/shuffle/repeat signals.
const DefaultDebounce = 500 * time.Millisecond

// Listener receives each changed PlayerState snapshot.
type Listener func(models.PlayerState)

// Options configure an Observer.
type Options struct {
	// Debounce window for like/shuffle/repeat signals. Zero means
	// DefaultDebounce; negative disables debouncing.
	Debounce time.Duration
	// PollInterval between refresh requests sent to the renderer. Zero or
	// negative disables the poller.
	PollInterval time.Duration
	Logger       *log.Logger
}

// Observer owns the current PlayerState snapshot.
type Observer struct {
	bus      ipc.Sender
	feed     *songfeed.Feed
	logger   *log.Logger
	debounce time.Duration

	mu        sync.Mutex
	state     models.PlayerState
	listeners map[int]Listener
	nextID    int
	pending   *models.PlayerState
	timer     *time.Timer
	closed    bool
	offs      []func()

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an Observer subscribed to the player channels on the bus and
// to the song feed.
func New(bus ipc.Sender, feed *songfeed.Feed, opts Options) *Observer {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if debounce < 0 {
		debounce = 0
	}

	o := &Observer{
		bus:       bus,
		feed:      feed,
		logger:    opts.Logger.With("component", "observer"),
		debounce:  debounce,
		listeners: make(map[int]Listener),
		done:      make(chan struct{}),
	}

	o.offs = append(o.offs,
		bus.On(ipc.ChanLikeStatusChanged, o.onLikeChanged),
		bus.On(ipc.ChanRepeatChanged, o.onRepeatChanged),
		bus.On(ipc.ChanShuffleChanged, o.onShuffleChanged),
		feed.Subscribe(o.onSongEvent),
	)

	if opts.PollInterval > 0 {
		o.wg.Add(1)
		go o.poll(opts.PollInterval)
	}

	return o
}

// State returns the current snapshot.
func (o *Observer) State() models.PlayerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnChange registers a listener and returns its unsubscribe func. Listeners
// are invoked in registration order, only when a snapshot actually changed.
func (o *Observer) OnChange(l Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.listeners[id] = l

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

// ListenerCount reports live listeners; tests assert it drops to zero.
func (o *Observer) ListenerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.listeners)
}

// TimerArmed reports whether a debounce flush is pending.
func (o *Observer) TimerArmed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timer != nil
}

// Close synchronously cancels the debounce timer and the poller, drops all
// listeners, and detaches from the bus and feed. After Close returns no
// callback mutates state. Idempotent.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.timer != nil {
		if o.timer.Stop() {
			// Flush never ran; settle its WaitGroup slot.
			o.wg.Done()
		}
		o.timer = nil
	}
	o.pending = nil
	o.listeners = make(map[int]Listener)
	offs := o.offs
	o.offs = nil
	close(o.done)
	o.mu.Unlock()

	for _, off := range offs {
		off()
	}
	o.wg.Wait()
}

// onSongEvent applies song feed events. Play/pause edges apply immediately;
// a source change resets the like flag to its unknown default and re-queries
// the renderer asynchronously.
func (o *Observer) onSongEvent(ev songfeed.Event) {
	candidate := o.candidate()
	candidate.HasCurrentSong = true
	candidate.IsPaused = ev.Song.IsPaused
	candidate.IsPlaying = !ev.Song.IsPaused

	if ev.Kind == songfeed.VideoSrcChanged {
		candidate.IsLiked = false
		candidate.CanLike = false
		o.requeryLikeStatus(ev.Song.VideoID)
	}

	o.propose(candidate, false)
}

func (o *Observer) onLikeChanged(payload json.RawMessage) {
	var status ipc.LikeStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		o.logger.Error("failed to decode like status", "err", err)
		return
	}

	candidate := o.candidate()
	candidate.IsLiked = status.IsLiked
	candidate.CanLike = true
	o.propose(candidate, true)
}

func (o *Observer) onRepeatChanged(payload json.RawMessage) {
	var rc ipc.RepeatChanged
	if err := json.Unmarshal(payload, &rc); err != nil {
		o.logger.Error("failed to decode repeat change", "err", err)
		return
	}
	mode, err := rc.RepeatMode()
	if err != nil {
		o.logger.Error("ignoring repeat change", "err", err)
		return
	}

	candidate := o.candidate()
	candidate.RepeatMode = mode
	o.propose(candidate, true)
}

func (o *Observer) onShuffleChanged(payload json.RawMessage) {
	var sc ipc.ShuffleChanged
	if err := json.Unmarshal(payload, &sc); err != nil {
		o.logger.Error("failed to decode shuffle change", "err", err)
		return
	}

	candidate := o.candidate()
	candidate.IsShuffled = sc.IsShuffled
	o.propose(candidate, true)
}

// candidate returns the base snapshot a new signal should be applied to: the
// pending debounced snapshot if one exists, so bursts touching different
// fields merge instead of clobbering each other.
func (o *Observer) candidate() models.PlayerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		return *o.pending
	}
	return o.state
}

// propose submits a candidate snapshot. Immediate candidates apply at once;
// debounced candidates wait out the coalescing window, latest value winning.
func (o *Observer) propose(candidate models.PlayerState, debounced bool) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	if !debounced || o.debounce == 0 {
		o.applyLocked(candidate)
		return
	}

	o.pending = &candidate
	if o.timer == nil {
		o.wg.Add(1)
		o.timer = time.AfterFunc(o.debounce, o.flush)
	}
	o.mu.Unlock()
}

// flush applies the pending debounced snapshot, if any survives.
func (o *Observer) flush() {
	defer o.wg.Done()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	if o.pending == nil {
		o.mu.Unlock()
		return
	}
	candidate := *o.pending
	o.pending = nil
	o.applyLocked(candidate)
}

// applyLocked replaces the snapshot and notifies listeners iff it changed.
// Callers hold o.mu; it is released here so listeners run without the lock.
func (o *Observer) applyLocked(candidate models.PlayerState) {
	if o.state.Equal(candidate) {
		o.mu.Unlock()
		return
	}

	o.state = candidate
	ids := make([]int, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, o.listeners[id])
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(candidate)
	}
}

// requeryLikeStatus asks the renderer for the like state of the new song and
// applies the reply as a debounced like signal.
func (o *Observer) requeryLikeStatus(videoID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		go func() {
			// Abort the in-flight invoke when the observer closes.
			select {
			case <-o.done:
				cancel()
			case <-ctx.Done():
			}
		}()

		reply, err := o.bus.Invoke(ctx, ipc.ChanGetLikeStatus, ipc.LikeStatus{VideoID: videoID})
		if err != nil {
			o.logger.Debug("like status re-query failed", "videoId", videoID, "err", err)
			return
		}

		select {
		case <-o.done:
			return
		default:
		}
		o.onLikeChanged(reply)
	}()
}

// poll periodically asks the renderer to re-publish its statuses. The
// third-party page exposes no reliable change events, so the renderer scrapes
// on demand and answers on the *-changed channels.
func (o *Observer) poll(interval time.Duration) {
	defer o.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			o.bus.Send(ipc.ChanRefreshLikeStatus, nil)
			o.bus.Send(ipc.ChanRefreshRepeatStatus, nil)
			o.bus.Send(ipc.ChanRefreshShuffleStatus, nil)
		}
	}
}
