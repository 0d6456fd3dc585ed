// package shortcuts opens the playing song on external services in the
// default browser.
package shortcuts

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

// Service names accepted in ytmd:open-external payloads.
const (
	ServiceWatch  = "watch"
	ServiceGenius = "genius"
)

// Plugin listens for open-external requests and launches the browser.
type Plugin struct {
	open func(url string) error

	mu      sync.Mutex
	logger  *log.Logger
	feed    *songfeed.Feed
	off     func()
	running bool
}

var _ plugins.Plugin = (*Plugin)(nil)

// New creates the plugin using the system browser.
func New() *Plugin {
	return &Plugin{open: shared.OpenBrowser}
}

// NewWithOpener creates the plugin with a custom URL opener.
func NewWithOpener(open func(url string) error) *Plugin {
	return &Plugin{open: open}
}

func (p *Plugin) Name() string { return "shortcuts" }

func (p *Plugin) Description() string {
	return "Opens the playing song on external services"
}

func (p *Plugin) Enabled(config *shared.Config) bool {
	return config.Plugins.Shortcuts.Enabled
}

func (p *Plugin) RestartNeeded() bool { return false }

func (p *Plugin) Start(ctx plugins.Context) error {
	off := ctx.Bus.On(ipc.ChanOpenExternal, func(payload json.RawMessage) {
		p.handleOpen(payload)
	})

	p.mu.Lock()
	p.logger = ctx.Logger
	p.feed = ctx.Feed
	p.off = off
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
	off := p.off
	p.feed, p.off = nil, nil
	p.mu.Unlock()

	off()
	return nil
}

func (p *Plugin) handleOpen(payload json.RawMessage) {
	p.mu.Lock()
	feed, logger, running := p.feed, p.logger, p.running
	p.mu.Unlock()
	if !running {
		return
	}

	var req ipc.OpenExternal
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &req); err != nil {
			logger.Error("failed to decode open-external payload", "err", err)
			return
		}
	}
	if req.Service == "" {
		req.Service = ServiceWatch
	}

	song, ok := feed.Current()
	if !ok {
		logger.Warn("no song playing, nothing to open")
		return
	}

	target, err := externalURL(req.Service, song)
	if err != nil {
		logger.Error("cannot build external URL", "service", req.Service, "err", err)
		return
	}
	if err := p.open(target); err != nil {
		logger.Error("failed to open browser", "url", target, "err", err)
	}
}

// externalURL builds the destination for a service name.
func externalURL(service string, song models.SongInfo) (string, error) {
	switch service {
	case ServiceWatch:
		target := song.WatchURL()
		if target == "" {
			return "", fmt.Errorf("song has no watch URL")
		}
		return target, nil
	case ServiceGenius:
		q := url.QueryEscape(strings.TrimSpace(song.Artist + " " + song.Title))
		return "https://genius.com/search?q=" + q, nil
	default:
		return "", fmt.Errorf("unknown service %q", service)
	}
}
