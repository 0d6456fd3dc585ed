package platform

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/menu"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// dockAdapter renders the quick controls as the dock-style status menu on
// macOS. Window management lives in the dock itself, so unlike the tray
// variant it appends no extra entries.
type dockAdapter struct {
	builder *menu.Builder
	backend Backend
	logger  *log.Logger

	mu      sync.Mutex
	phase   Phase
	applied models.PlayerState
	session *session

	// rebuildMu serializes whole rebuilds against each other and against
	// Destroy. Always taken before a.mu.
	rebuildMu sync.Mutex
}

func newDockAdapter(opts Options) *dockAdapter {
	return &dockAdapter{
		builder: opts.Builder,
		backend: opts.Backend,
		logger:  opts.Logger.With("component", "dock"),
		phase:   Uninitialized,
	}
}

func (a *dockAdapter) PlatformName() string {
	return "darwin-dock"
}

func (a *dockAdapter) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *dockAdapter) Initialize() error {
	if goos() != "darwin" {
		return fmt.Errorf("%w: dock controls need darwin, running on %s", shared.ErrPlatformUnsupported, goos())
	}

	a.mu.Lock()
	if a.phase != Uninitialized {
		a.mu.Unlock()
		return fmt.Errorf("initialize from phase %s", a.phase)
	}
	a.phase = Initializing
	a.mu.Unlock()

	if err := a.backend.Start(a.onReady); err != nil {
		return fmt.Errorf("failed to start dock menu: %w", err)
	}
	return nil
}

func (a *dockAdapter) onReady() {
	if icon, err := defaultIcon(); err != nil {
		a.logger.Error("failed to render status icon", "err", err)
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

	a.logger.Info("dock menu ready")
	a.CreateMenu()
}

func (a *dockAdapter) CreateMenu() {
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

	applyItems(a.backend, a.builder.Build(state), next)
}

func (a *dockAdapter) UpdatePlayerState(state models.PlayerState) {
	a.mu.Lock()
	if a.phase != Ready || a.applied.Equal(state) {
		a.mu.Unlock()
		return
	}
	a.applied = state
	a.mu.Unlock()

	a.CreateMenu()
}

func (a *dockAdapter) Destroy() {
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
	a.logger.Info("dock menu destroyed")
}
