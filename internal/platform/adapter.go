// package platform translates menu descriptor lists into the native tray or
// dock menu of the current OS. Exactly one live native menu object exists per
// process; every state change rebuilds it wholesale instead of patching
// individual widgets.
package platform

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/menu"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// Phase is the adapter lifecycle state.
type Phase int

const (
	Uninitialized Phase = iota
	Initializing
	Ready
	Destroyed
)

// String returns the lowercase phase name for logs.
func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Destroyed:
		return "destroyed"
	default:
		return "uninitialized"
	}
}

// Adapter is the shared lifecycle contract every OS variant implements as an
// independent module.
type Adapter interface {
	// Initialize moves the adapter from Uninitialized through Initializing to
	// Ready. A wrong OS is a synchronous hard error and the adapter never
	// reaches Ready.
	Initialize() error
	// CreateMenu rebuilds the entire native menu from the last applied state.
	CreateMenu()
	// UpdatePlayerState rebuilds the menu iff the snapshot differs from the
	// previously applied one.
	UpdatePlayerState(state models.PlayerState)
	// Destroy releases native resources and click listeners. Idempotent.
	Destroy()
	// PlatformName names the variant, e.g. "darwin-dock" or "linux-tray".
	PlatformName() string
	// Phase reports the current lifecycle state.
	Phase() Phase
}

// Options are shared by the per-OS constructors.
type Options struct {
	Builder *menu.Builder
	Backend Backend
	Logger  *log.Logger
	// OnShowWindow and OnExit back the extra tray entries on non-darwin
	// platforms. Ignored by the dock variant.
	OnShowWindow func()
	OnExit       func()
}

var goos = func() string { return runtime.GOOS }

// Supported names the adapter variant the current OS gets, or "" when the
// widget layer has no backend for it.
func Supported() string {
	switch goos() {
	case "darwin":
		return "darwin-dock"
	case "linux", "windows":
		return goos() + "-tray"
	default:
		return ""
	}
}

// New picks the adapter variant for the current OS. Unknown platforms fail
// later, synchronously, in Initialize.
func New(opts Options) Adapter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Backend == nil {
		opts.Backend = newSystrayBackend()
	}

	if goos() == "darwin" {
		return newDockAdapter(opts)
	}
	return newTrayAdapter(opts)
}

// Backend is the seam between adapters and the native widget toolkit. Tests
// substitute a fake; production uses the systray implementation.
type Backend interface {
	// Start brings the native loop up and calls onReady once the tray/dock
	// icon exists. Non-blocking.
	Start(onReady func()) error
	SetIcon(icon []byte)
	SetTooltip(tooltip string)
	ResetMenu()
	AddItem(label, tooltip string, kind menu.ItemType, checked, disabled bool) Handle
	AddSeparator()
	Quit()
}

// Handle is one realized native menu item.
type Handle interface {
	AddSubItem(label string, kind menu.ItemType, checked, disabled bool) Handle
	Clicked() <-chan struct{}
}

// session owns the click goroutines of one menu build. Rebuilding or
// destroying the menu closes the previous session so stale goroutines never
// fire actions.
type session struct {
	done chan struct{}
	wg   sync.WaitGroup
}

func newSession() *session {
	return &session{done: make(chan struct{})}
}

func (s *session) watch(h Handle, action func()) {
	if action == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case _, ok := <-h.Clicked():
				if !ok {
					return
				}
				action()
			}
		}
	}()
}

func (s *session) close() {
	close(s.done)
	s.wg.Wait()
}

// applyItems realizes a descriptor list on the backend and wires click
// listeners into the session.
func applyItems(b Backend, items []menu.Item, s *session) {
	b.ResetMenu()
	for _, item := range items {
		if item.Type == menu.Separator {
			b.AddSeparator()
			continue
		}

		tooltip := item.Label
		if item.Accelerator != "" {
			tooltip = fmt.Sprintf("%s (%s)", item.Label, item.Accelerator)
		}

		h := b.AddItem(item.Label, tooltip, item.Type, item.Checked, !item.Enabled)
		s.watch(h, item.Action)

		for _, sub := range item.Submenu {
			sh := h.AddSubItem(sub.Label, sub.Type, sub.Checked, !sub.Enabled)
			s.watch(sh, sub.Action)
		}
	}
}
