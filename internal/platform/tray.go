package platform

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/menu"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// trayAdapter renders the quick controls into a tray context menu on linux
// and windows. Beyond the built descriptor list it appends window controls:
// a "Show Window" entry and an "Exit" entry.
type trayAdapter struct {
	builder      *menu.Builder
	backend      Backend
	logger       *log.Logger
	onShowWindow func()
	onExit       func()

	mu      sync.Mutex
	phase   Phase
	applied models.PlayerState
	session *session

	// rebuildMu serializes whole rebuilds against each other and against
	// Destroy; a.mu alone only guards the phase and session swap, not the
	// backend calls that follow it. Always taken before a.mu.
	rebuildMu sync.Mutex
}

func newTrayAdapter(opts Options) *trayAdapter {
	return &trayAdapter{
		builder:      opts.Builder,
		backend:      opts.Backend,
		logger:       opts.Logger.With("component", "tray"),
		onShowWindow: opts.OnShowWindow,
		onExit:       opts.OnExit,
		phase:        Uninitialized,
	}
}

func (a *trayAdapter) PlatformName() string {
	return fmt.Sprintf("%s-tray", goos())
}

func (a *trayAdapter) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *trayAdapter) Initialize() error {
	switch goos() {
	case "linux", "windows":
	default:
		return fmt.Errorf("%w: tray controls need linux or windows, running on %s", shared.ErrPlatformUnsupported, goos())
	}

	a.mu.Lock()
	if a.phase != Uninitialized {
		a.mu.Unlock()
		return fmt.Errorf("initialize from phase %s", a.phase)
	}
	a.phase = Initializing
	a.mu.Unlock()

	if err := a.backend.Start(a.onReady); err != nil {
		return fmt.Errorf("failed to start tray: %w", err)
	}
	return nil
}

func (a *trayAdapter) onReady() {
	if icon, err := defaultIcon(); err != nil {
		// Menu still works without an icon; keep going.
		a.logger.Error("failed to render tray icon", "err", err)
	} else {
		a.backend.SetIcon(icon)
	}
	a.backend.SetTooltip("YouTube Music")

	a.mu.Lock()
	if a.phase != Initializing {
		a.mu.Unlock()
		return
	}
	a.phase = Ready
	a.mu.Unlock()

	a.logger.Info("tray ready")
	a.CreateMenu()
}

// CreateMenu rebuilds the native menu from the last applied snapshot. Only
// one rebuild touches the backend at a time.
func (a *trayAdapter) CreateMenu() {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	a.mu.Lock()
	if a.phase != Ready {
		a.mu.Unlock()
		return
	}
	state := a.applied
	old := a.session
	next := newSession()
	a.session = next
	a.mu.Unlock()

	if old != nil {
		old.close()
	}

	items := a.builder.Build(state)
	applyItems(a.backend, items, next)

	// The window controls come from the builder's live label set so locale
	// changes reach them too.
	labels := a.builder.Labels()
	a.backend.AddSeparator()
	show := a.backend.AddItem(labels.ShowWindow, labels.ShowWindow, menu.Normal, false, false)
	next.watch(show, a.onShowWindow)
	exit := a.backend.AddItem(labels.Exit, labels.Exit, menu.Normal, false, false)
	next.watch(exit, a.onExit)
}

// UpdatePlayerState rebuilds only when the snapshot differs from the one the
// native menu currently shows.
func (a *trayAdapter) UpdatePlayerState(state models.PlayerState) {
	a.mu.Lock()
	if a.phase != Ready || a.applied.Equal(state) {
		a.mu.Unlock()
		return
	}
	a.applied = state
	a.mu.Unlock()

	a.CreateMenu()
}

func (a *trayAdapter) Destroy() {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	a.mu.Lock()
	if a.phase == Destroyed {
		a.mu.Unlock()
		return
	}
	a.phase = Destroyed
	old := a.session
	a.session = nil
	a.mu.Unlock()

	if old != nil {
		old.close()
	}
	a.backend.Quit()
	a.logger.Info("tray destroyed")
}
