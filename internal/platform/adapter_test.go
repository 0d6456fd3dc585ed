package platform

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmd/internal/menu"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

type fakeItem struct {
	label    string
	kind     menu.ItemType
	checked  bool
	disabled bool
	clicked  chan struct{}
	subs     []*fakeItem
}

func (f *fakeItem) AddSubItem(label string, kind menu.ItemType, checked, disabled bool) Handle {
	sub := &fakeItem{label: label, kind: kind, checked: checked, disabled: disabled, clicked: make(chan struct{})}
	f.subs = append(f.subs, sub)
	return sub
}

func (f *fakeItem) Clicked() <-chan struct{} { return f.clicked }

// fakeBackend calls onReady synchronously so lifecycle tests are
// deterministic.
type fakeBackend struct {
	mu         sync.Mutex
	items      []*fakeItem
	separators int
	resets     int
	quits      int
	icon       []byte
	startErr   error
}

func (f *fakeBackend) Start(onReady func()) error {
	if f.startErr != nil {
		return f.startErr
	}
	onReady()
	return nil
}

func (f *fakeBackend) SetIcon(icon []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.icon = icon
}

func (f *fakeBackend) SetTooltip(string) {}

func (f *fakeBackend) ResetMenu() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.separators = 0
	f.resets++
}

func (f *fakeBackend) AddItem(label, tooltip string, kind menu.ItemType, checked, disabled bool) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &fakeItem{label: label, kind: kind, checked: checked, disabled: disabled, clicked: make(chan struct{})}
	f.items = append(f.items, item)
	return item
}

func (f *fakeBackend) AddSeparator() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.separators++
}

func (f *fakeBackend) Quit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
}

func (f *fakeBackend) labels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.items))
	for i, item := range f.items {
		out[i] = item.label
	}
	return out
}

func (f *fakeBackend) find(label string) *fakeItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.label == label {
			return item
		}
	}
	return nil
}

type stubCommands struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubCommands) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *stubCommands) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubCommands) PlayPause()       { s.record("playPause") }
func (s *stubCommands) Previous()        { s.record("previous") }
func (s *stubCommands) Next()            { s.record("next") }
func (s *stubCommands) ToggleLike()      { s.record("toggleLike") }
func (s *stubCommands) ToggleShuffle()   { s.record("toggleShuffle") }
func (s *stubCommands) SwitchRepeat(int) { s.record("switchRepeat") }

func setGOOS(t *testing.T, os string) {
	t.Helper()
	orig := goos
	goos = func() string { return os }
	t.Cleanup(func() { goos = orig })
}

func newTestAdapter(t *testing.T, os string) (Adapter, *fakeBackend, *stubCommands) {
	t.Helper()
	setGOOS(t, os)

	cmds := &stubCommands{}
	backend := &fakeBackend{}
	builder := menu.NewBuilder(shared.QuickControlsConfig{
		Enabled:              true,
		ShowPlaybackControls: true,
		ShowLikeButton:       true,
		ShowRepeatControl:    true,
		ShowShuffleControl:   true,
	}, cmds, menu.DefaultLabels())

	adapter := New(Options{
		Builder:      builder,
		Backend:      backend,
		Logger:       shared.NewLogger(nil),
		OnShowWindow: func() { cmds.record("showWindow") },
		OnExit:       func() { cmds.record("exit") },
	})
	return adapter, backend, cmds
}

func TestTrayAdapterLifecycle(t *testing.T) {
	adapter, backend, _ := newTestAdapter(t, "linux")

	if adapter.Phase() != Uninitialized {
		t.Fatalf("expected uninitialized, got %s", adapter.Phase())
	}

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if adapter.Phase() != Ready {
		t.Fatalf("expected ready, got %s", adapter.Phase())
	}
	if adapter.PlatformName() != "linux-tray" {
		t.Errorf("unexpected platform name %s", adapter.PlatformName())
	}
	if backend.icon == nil {
		t.Error("expected tray icon set")
	}

	labels := backend.labels()
	if len(labels) == 0 {
		t.Fatal("expected an initial menu build")
	}
	// Tray variant appends window controls after the quick controls.
	if labels[len(labels)-2] != "Show Window" || labels[len(labels)-1] != "Exit" {
		t.Errorf("expected trailing window controls, got %v", labels)
	}

	if err := adapter.Initialize(); err == nil {
		t.Error("second initialize should fail")
	}
}

func TestDockAdapterLifecycle(t *testing.T) {
	adapter, backend, _ := newTestAdapter(t, "darwin")

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if adapter.PlatformName() != "darwin-dock" {
		t.Errorf("unexpected platform name %s", adapter.PlatformName())
	}

	for _, label := range backend.labels() {
		if label == "Show Window" || label == "Exit" {
			t.Errorf("dock variant must not add window controls, got %v", backend.labels())
		}
	}
}

func TestPlatformUnsupported(t *testing.T) {
	// A tray adapter constructed for linux but initialized on an OS the tray
	// variant does not support must fail hard and never reach Ready.
	adapter, _, _ := newTestAdapter(t, "linux")
	setGOOS(t, "plan9")

	err := adapter.Initialize()
	if !errors.Is(err, shared.ErrPlatformUnsupported) {
		t.Fatalf("expected ErrPlatformUnsupported, got %v", err)
	}
	if adapter.Phase() == Ready {
		t.Error("unsupported platform must not reach Ready")
	}
}

func TestUpdatePlayerState(t *testing.T) {
	adapter, backend, _ := newTestAdapter(t, "linux")
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	before := backend.resets

	state := models.PlayerState{IsPlaying: true, HasCurrentSong: true, CanLike: true}
	adapter.UpdatePlayerState(state)
	if backend.resets != before+1 {
		t.Fatalf("expected one rebuild, got %d", backend.resets-before)
	}

	// Identical snapshot: no rebuild.
	adapter.UpdatePlayerState(state)
	if backend.resets != before+1 {
		t.Error("identical snapshot must not rebuild the menu")
	}

	state.IsLiked = true
	adapter.UpdatePlayerState(state)
	if backend.resets != before+2 {
		t.Error("changed snapshot must rebuild the menu")
	}

	if item := backend.find("Pause"); item == nil {
		t.Errorf("expected Pause label while playing, menu: %v", backend.labels())
	}
}

func TestConcurrentRebuildsStaySerialized(t *testing.T) {
	adapter, backend, _ := newTestAdapter(t, "linux")
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// The observer listener and the refresh-tray-menu handler rebuild from
	// different goroutines; each rebuild must land on the backend whole.
	states := []models.PlayerState{
		{IsPlaying: true, HasCurrentSong: true, CanLike: true},
		{IsPlaying: false, HasCurrentSong: true, CanLike: true},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			adapter.UpdatePlayerState(states[i%2])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			adapter.CreateMenu()
		}
	}()
	wg.Wait()

	// Whatever rebuild finished last, the menu must be exactly one complete
	// build: six controls plus the two trailing window entries.
	labels := backend.labels()
	if len(labels) != 8 {
		t.Fatalf("garbled menu after concurrent rebuilds: %v", labels)
	}
	if labels[len(labels)-2] != "Show Window" || labels[len(labels)-1] != "Exit" {
		t.Errorf("incomplete trailing window controls: %v", labels)
	}
	exits := 0
	for _, label := range labels {
		if label == "Exit" {
			exits++
		}
	}
	if exits != 1 {
		t.Errorf("expected exactly one Exit entry, got %d in %v", exits, labels)
	}

	adapter.Destroy()
}

func TestClickDispatch(t *testing.T) {
	adapter, backend, cmds := newTestAdapter(t, "linux")
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	item := backend.find("Play")
	if item == nil {
		t.Fatalf("play item not found in %v", backend.labels())
	}
	item.clicked <- struct{}{}

	deadline := time.Now().Add(time.Second)
	for cmds.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if cmds.count() == 0 {
		t.Fatal("click did not dispatch an action")
	}

	adapter.Destroy()
}

func TestDestroyIdempotent(t *testing.T) {
	adapter, backend, _ := newTestAdapter(t, "linux")
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	adapter.Destroy()
	adapter.Destroy()

	if adapter.Phase() != Destroyed {
		t.Errorf("expected destroyed, got %s", adapter.Phase())
	}
	if backend.quits != 1 {
		t.Errorf("expected exactly one backend quit, got %d", backend.quits)
	}

	// Updates after destroy are dropped.
	before := backend.resets
	adapter.UpdatePlayerState(models.PlayerState{IsPlaying: true})
	if backend.resets != before {
		t.Error("destroyed adapter must not rebuild")
	}
}
