// package quickcontrols mirrors playback controls into the native tray or
// dock menu: play/pause/previous/next, like, shuffle, and the tri-state
// repeat submenu.
package quickcontrols

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/menu"
	"github.com/desertthunder/ytmd/internal/observer"
	"github.com/desertthunder/ytmd/internal/platform"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/shared"
)

// repeatRefreshDelay gives the third-party UI time to settle after simulated
// repeat presses before the renderer is asked for the resulting mode.
const repeatRefreshDelay = 500 * time.Millisecond

// AdapterFactory builds the platform adapter. Tests substitute a fake.
type AdapterFactory func(platform.Options) platform.Adapter

// Plugin wires observer, menu builder, and platform adapter together.
type Plugin struct {
	newAdapter AdapterFactory

	mu      sync.Mutex
	obs     *observer.Observer
	adapter platform.Adapter
	cmds    *busCommands
	offs    []func()
	running bool
}

var _ plugins.Plugin = (*Plugin)(nil)

// New creates the plugin with the real per-OS adapter.
func New() *Plugin {
	return &Plugin{newAdapter: platform.New}
}

// NewWithAdapter creates the plugin with a custom adapter factory.
func NewWithAdapter(factory AdapterFactory) *Plugin {
	return &Plugin{newAdapter: factory}
}

func (p *Plugin) Name() string { return "quickcontrols" }

func (p *Plugin) Description() string {
	return "Playback controls in the system tray or dock menu"
}

func (p *Plugin) Enabled(config *shared.Config) bool {
	return config.Plugins.QuickControls.Enabled
}

// RestartNeeded is true: toggling individual menu entries re-registers
// native widgets, which only happens at plugin start.
func (p *Plugin) RestartNeeded() bool { return true }

func (p *Plugin) Start(ctx plugins.Context) error {
	cfg := ctx.Config.Plugins.QuickControls

	cmds := &busCommands{bus: ctx.Bus}
	builder := menu.NewBuilder(cfg, cmds, menu.DefaultLabels())

	obs := observer.New(ctx.Bus, ctx.Feed, observer.Options{
		PollInterval: time.Duration(ctx.Config.Bridge.PollInterval) * time.Second,
		Logger:       ctx.Logger,
	})

	adapter := p.newAdapter(platform.Options{
		Builder: builder,
		Logger:  ctx.Logger,
		OnShowWindow: func() {
			ctx.Bus.Send(ipc.ChanShowWindow, nil)
		},
		OnExit: ctx.Quit,
	})

	if err := adapter.Initialize(); err != nil {
		obs.Close()
		return err
	}

	offs := []func(){
		obs.OnChange(adapter.UpdatePlayerState),
		ctx.Bus.On(ipc.ChanRefreshTrayMenu, func(json.RawMessage) {
			adapter.CreateMenu()
		}),
		ctx.Bus.On(ipc.ChanLanguageChanged, func(payload json.RawMessage) {
			p.onLanguageChanged(ctx.Logger, payload, builder, adapter)
		}),
	}

	p.mu.Lock()
	p.obs = obs
	p.adapter = adapter
	p.cmds = cmds
	p.offs = offs
	p.running = true
	p.mu.Unlock()
	return nil
}

func (p *Plugin) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	obs, adapter, cmds, offs := p.obs, p.adapter, p.cmds, p.offs
	p.obs, p.adapter, p.cmds, p.offs = nil, nil, nil, nil
	p.mu.Unlock()

	for _, off := range offs {
		off()
	}
	cmds.stopTimers()
	obs.Close()
	adapter.Destroy()
	return nil
}

// onLanguageChanged swaps the builder's label set for the new locale and
// rebuilds the menu with it.
func (p *Plugin) onLanguageChanged(logger *log.Logger, payload json.RawMessage, builder *menu.Builder, adapter platform.Adapter) {
	var lc ipc.LanguageChanged
	if err := json.Unmarshal(payload, &lc); err != nil {
		logger.Error("failed to decode language change", "err", err)
		return
	}
	logger.Info("rebuilding menu for locale", "locale", lc.Locale)
	builder.SetLabels(menu.LabelsFor(lc.Locale))
	adapter.CreateMenu()
}

// busCommands dispatches menu actions onto the message bus.
type busCommands struct {
	bus ipc.Sender

	mu    sync.Mutex
	timer *time.Timer
}

var _ menu.Commands = (*busCommands)(nil)

func (c *busCommands) PlayPause()     { c.bus.Send(ipc.ChanPlayPause, nil) }
func (c *busCommands) Previous()      { c.bus.Send(ipc.ChanPrevious, nil) }
func (c *busCommands) Next()          { c.bus.Send(ipc.ChanNext, nil) }
func (c *busCommands) ToggleLike()    { c.bus.Send(ipc.ChanToggleLike, nil) }
func (c *busCommands) ToggleShuffle() { c.bus.Send(ipc.ChanToggleShuffle, nil) }

// SwitchRepeat presses the forward-only toggle n times, then asks for the
// resulting mode once the page has settled.
func (c *busCommands) SwitchRepeat(n int) {
	for i := 0; i < n; i++ {
		c.bus.Send(ipc.ChanSwitchRepeat, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(repeatRefreshDelay, func() {
		c.bus.Send(ipc.ChanRefreshRepeatStatus, nil)
	})
}

func (c *busCommands) stopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
