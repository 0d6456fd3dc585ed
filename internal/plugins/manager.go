package plugins

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/shared"
)

// State is a plugin's lifecycle state as tracked by the manager.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Failed
	Disabled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Disabled:
		return "disabled"
	default:
		return "stopped"
	}
}

// Info is one row of the plugin listing.
type Info struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	State         string `json:"state"`
	RestartNeeded bool   `json:"restart_needed"`
}

// Manager registers plugins and owns their lifecycle. A plugin that fails to
// start is isolated: its state becomes Failed, everything else keeps running.
type Manager struct {
	ctx    Context
	logger *log.Logger

	mu      sync.Mutex
	order   []Plugin
	states  map[string]State
	started []Plugin // reverse-stop order
}

// NewManager creates a Manager dispatching the given host context.
func NewManager(ctx Context) *Manager {
	logger := ctx.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
		ctx.Logger = logger
	}
	return &Manager{
		ctx:    ctx,
		logger: logger.With("component", "plugins"),
		states: make(map[string]State),
	}
}

// Register adds a plugin. Names must be unique.
func (m *Manager) Register(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[p.Name()]; ok {
		return fmt.Errorf("plugin %s already registered", p.Name())
	}
	m.order = append(m.order, p)
	m.states[p.Name()] = Stopped
	return nil
}

// StartAll starts every enabled plugin in registration order. Start failures
// are logged and isolated; StartAll itself only fails on host-level misuse.
func (m *Manager) StartAll() {
	m.mu.Lock()
	order := append([]Plugin(nil), m.order...)
	m.mu.Unlock()

	for _, p := range order {
		if !p.Enabled(m.ctx.Config) {
			m.setState(p.Name(), Disabled)
			m.logger.Debug("plugin disabled", "plugin", p.Name())
			continue
		}
		if err := m.Start(p.Name()); err != nil {
			m.logger.Error("plugin failed to start", "plugin", p.Name(), "err", err)
		}
	}
}

// Start starts one plugin by name.
func (m *Manager) Start(name string) error {
	p, err := m.find(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.states[name] == Running || m.states[name] == Starting {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrPluginAlreadyRunning, name)
	}
	m.states[name] = Starting
	m.mu.Unlock()

	ctx := m.ctx
	ctx.Logger = m.ctx.Logger.With("plugin", name)

	if err := p.Start(ctx); err != nil {
		m.setState(name, Failed)
		return fmt.Errorf("failed to start plugin %s: %w", name, err)
	}

	m.mu.Lock()
	m.states[name] = Running
	m.started = append(m.started, p)
	m.mu.Unlock()

	m.logger.Info("plugin started", "plugin", name)
	return nil
}

// Stop stops one plugin by name. Stopping a plugin that is not running is a
// no-op.
func (m *Manager) Stop(name string) error {
	p, err := m.find(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.states[name] != Running {
		m.mu.Unlock()
		return nil
	}
	m.states[name] = Stopped
	for i, sp := range m.started {
		if sp == p {
			m.started = append(m.started[:i], m.started[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if err := p.Stop(); err != nil {
		return fmt.Errorf("failed to stop plugin %s: %w", name, err)
	}
	m.logger.Info("plugin stopped", "plugin", name)
	return nil
}

// StopAll stops running plugins in reverse start order.
func (m *Manager) StopAll() {
	m.mu.Lock()
	started := append([]Plugin(nil), m.started...)
	m.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		if err := m.Stop(started[i].Name()); err != nil {
			m.logger.Error("plugin failed to stop", "plugin", started[i].Name(), "err", err)
		}
	}
}

// State reports the lifecycle state of a plugin.
func (m *Manager) State(name string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[name]
	if !ok {
		return Stopped, fmt.Errorf("%w: %s", shared.ErrPluginNotFound, name)
	}
	return state, nil
}

// List returns plugin info rows in registration order.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.order))
	for _, p := range m.order {
		infos = append(infos, Info{
			Name:          p.Name(),
			Description:   p.Description(),
			State:         m.states[p.Name()].String(),
			RestartNeeded: p.RestartNeeded(),
		})
	}
	return infos
}

func (m *Manager) find(name string) (Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.order {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPluginNotFound, name)
}

func (m *Manager) setState(name string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[name] = s
}
