// package lyricsview prefetches lyric sheets for the playing song and
// answers ytmd:get-lyrics invokes from the overlay and the CLI.
package lyricsview

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/lyrics"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/repositories"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
)

// fetchTimeout bounds one walk of the provider chain.
const fetchTimeout = 15 * time.Second

// Resolver is the lyric lookup seam. Satisfied by [lyrics.Service].
type Resolver interface {
	Lookup(ctx context.Context, song models.SongInfo) (*models.Lyrics, error)
}

// ResolverFactory builds the resolver and an optional cleanup (closing the
// cache database). Tests substitute a fake resolver.
type ResolverFactory func(ctx plugins.Context) (Resolver, func(), error)

// Plugin resolves lyrics for the song feed's current track and keeps the
// latest sheet in memory for instant invoke replies.
type Plugin struct {
	newResolver ResolverFactory

	mu       sync.Mutex
	logger   *log.Logger
	svc      Resolver
	cleanup  func()
	offFeed  func()
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	current  *models.Lyrics
	fetchSeq uint64
	running  bool
}

var _ plugins.Plugin = (*Plugin)(nil)

// New creates the plugin backed by the real provider chain and sqlite cache.
func New() *Plugin {
	return &Plugin{newResolver: newCachedService}
}

// NewWithResolver creates the plugin with a custom resolver factory.
func NewWithResolver(factory ResolverFactory) *Plugin {
	return &Plugin{newResolver: factory}
}

// newCachedService opens the configured cache database, migrates it, and
// builds the provider chain on top.
func newCachedService(ctx plugins.Context) (Resolver, func(), error) {
	db, err := shared.NewDatabase(ctx.Config.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	shared.ConfigureDatabase(db, ctx.Config.Database.MaxOpenConns, ctx.Config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	cache := repositories.NewLyricsRepository(db)
	svc, err := lyrics.NewService(ctx.Config, cache, ctx.Logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, closeQuiet(db), nil
}

func closeQuiet(db *sql.DB) func() {
	return func() { db.Close() }
}

func (p *Plugin) Name() string { return "lyricsview" }

func (p *Plugin) Description() string {
	return "Fetches and caches lyrics for the playing song"
}

func (p *Plugin) Enabled(config *shared.Config) bool {
	return config.Plugins.Lyrics.Enabled
}

// RestartNeeded is false: the provider chain is re-read per lookup and the
// plugin holds no native resources.
func (p *Plugin) RestartNeeded() bool { return false }

func (p *Plugin) Start(ctx plugins.Context) error {
	svc, cleanup, err := p.newResolver(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	ctx.Bus.HandleInvoke(ipc.ChanGetLyrics, p.handleGetLyrics)
	offFeed := ctx.Feed.Subscribe(func(ev songfeed.Event) {
		if ev.Kind != songfeed.VideoSrcChanged {
			return
		}
		p.prefetch(runCtx, ev.Song)
	})

	p.mu.Lock()
	p.logger = ctx.Logger
	p.svc = svc
	p.cleanup = cleanup
	p.cancel = cancel
	p.offFeed = offFeed
	p.current = nil
	p.running = true
	p.mu.Unlock()

	// warm the cache for whatever is already playing
	if song, ok := ctx.Feed.Current(); ok {
		p.prefetch(runCtx, song)
	}
	return nil
}

func (p *Plugin) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, offFeed, cleanup := p.cancel, p.offFeed, p.cleanup
	p.cancel, p.offFeed, p.cleanup, p.svc, p.current = nil, nil, nil, nil, nil
	p.mu.Unlock()

	if offFeed != nil {
		offFeed()
	}
	cancel()
	p.wg.Wait()
	if cleanup != nil {
		cleanup()
	}
	return nil
}

// Current returns the most recently resolved sheet, if any.
func (p *Plugin) Current() (*models.Lyrics, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	return p.current, true
}

// prefetch resolves the sheet for a song in the background so the overlay
// gets an instant answer when it asks.
func (p *Plugin) prefetch(ctx context.Context, song models.SongInfo) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	svc, logger := p.svc, p.logger
	p.fetchSeq++
	seq := p.fetchSeq
	p.current = nil
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		sheet, err := svc.Lookup(fetchCtx, song)
		if err != nil {
			logger.Debug("no lyrics for song", "title", song.Title, "err", err)
			return
		}

		p.mu.Lock()
		// A newer prefetch supersedes this one; its sheet is stale.
		if p.running && seq == p.fetchSeq {
			p.current = sheet
		}
		p.mu.Unlock()
	}()
}

// handleGetLyrics answers ytmd:get-lyrics. An empty payload returns the
// current sheet; a SongInfo payload resolves that song directly.
func (p *Plugin) handleGetLyrics(ctx context.Context, payload json.RawMessage) (any, error) {
	p.mu.Lock()
	svc, current, running := p.svc, p.current, p.running
	p.mu.Unlock()
	if !running {
		return nil, shared.ErrLyricsNotFound
	}

	var song models.SongInfo
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &song); err != nil {
			return nil, err
		}
	}

	if song.Title == "" {
		if current == nil {
			return nil, shared.ErrLyricsNotFound
		}
		return current, nil
	}
	return svc.Lookup(ctx, song)
}
