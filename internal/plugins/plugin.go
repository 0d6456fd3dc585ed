// package plugins defines the contract feature plugins implement and the
// manager that owns their lifecycle. Whether a plugin is running is manager
// state, never a process-wide flag inside the plugin itself.
package plugins

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

// Context carries the host facilities a plugin's backend hook may use.
type Context struct {
	Config *shared.Config
	Bus    ipc.Sender
	Feed   *songfeed.Feed
	Logger *log.Logger
	// Quit asks the host to shut down, e.g. from a tray Exit entry.
	Quit func()
}

// Plugin is one feature plugin.
type Plugin interface {
	// Name is the stable identifier used in config and CLI output.
	Name() string
	Description() string
	// Enabled reports whether the plugin should start under this config.
	Enabled(config *shared.Config) bool
	// RestartNeeded reports whether config changes require a host restart to
	// take effect.
	RestartNeeded() bool
	// Start is the backend hook. It must return quickly; long-running work
	// belongs on goroutines the plugin tears down in Stop.
	Start(ctx Context) error
	// Stop releases everything Start acquired. Must be idempotent.
	Stop() error
}
