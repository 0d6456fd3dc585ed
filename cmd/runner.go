package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/platform"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/plugins/lyricsview"
	"github.com/desertthunder/ytmd/internal/plugins/quickcontrols"
	"github.com/desertthunder/ytmd/internal/plugins/shortcuts"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	dial   func(ctx context.Context, addr string) (*ipc.Client, error)
	newSet func() []plugins.Plugin
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer

	// Dial overrides how CLI commands reach a running host's bridge.
	Dial func(ctx context.Context, addr string) (*ipc.Client, error)

	// Plugins overrides the plugin set the host registers.
	Plugins func() []plugins.Plugin
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Dial == nil {
		opts.Dial = ipc.Dial
	}
	if opts.Plugins == nil {
		opts.Plugins = defaultPlugins
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		dial:   opts.Dial,
		newSet: opts.Plugins,
	}
}

// defaultPlugins is the host's plugin set in start order.
func defaultPlugins() []plugins.Plugin {
	return []plugins.Plugin{
		quickcontrols.New(),
		lyricsview.New(),
		shortcuts.New(),
	}
}

// SetLogger swaps the runner's logger, e.g. to a file logger while a TUI
// owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, pluginsCommand, lyricsCommand, stateCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig re-reads the config at the given path, keeping the runner's
// config when the file is absent or malformed.
func (r *Runner) loadConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		return r.config
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return r.config
	}
	return config
}

// widgetBackendCheck exists so the run command fails fast on platforms the
// widget layer never supports instead of after the bridge is up.
func widgetBackendCheck() error {
	switch name := platform.Supported(); name {
	case "":
		return fmt.Errorf("%w: no tray or dock backend for this platform", shared.ErrPlatformUnsupported)
	default:
		return nil
	}
}

func (r *Runner) writeJSON(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
