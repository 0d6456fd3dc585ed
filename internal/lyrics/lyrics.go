// package lyrics defines interface Provider for fetching lyric sheets from
// HTTP APIs
//
// LRCLIB, Genius
package lyrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// Provider defines the interface for lyric sources.
type Provider interface {
	// Search looks up the lyric sheet for a song by title and artist.
	// Returns [shared.ErrLyricsNotFound] when the provider has no match.
	Search(ctx context.Context, title, artist string) (*models.Lyrics, error)

	// Name returns the name of the provider (e.g. "lrclib", "genius")
	Name() string
}

// Cache stores lyric sheets keyed by video ID.
type Cache interface {
	Get(ctx context.Context, videoID string) (*models.Lyrics, error)
	Put(ctx context.Context, lyrics *models.Lyrics) error
}

// Service resolves lyrics through a cache and an ordered provider chain.
type Service struct {
	providers []Provider
	cache     Cache
	logger    *log.Logger
}

// NewService builds a service from the configured provider order. Unknown
// provider names are rejected so a typo in the config surfaces at startup.
func NewService(config *shared.Config, cache Cache, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var providers []Provider
	for _, name := range config.Plugins.Lyrics.Providers {
		switch name {
		case "lrclib":
			providers = append(providers, NewLRCLibProvider(config.Credentials.LRCLib))
		case "genius":
			p, err := NewGeniusProvider(config.Credentials.Genius)
			if err != nil {
				if errors.Is(err, shared.ErrProviderDisabled) {
					logger.Warn("skipping lyrics provider", "provider", name, "err", err)
					continue
				}
				return nil, err
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("%w: unknown lyrics provider %q", shared.ErrInvalidConfig, name)
		}
	}

	return &Service{providers: providers, cache: cache, logger: logger}, nil
}

// Providers returns the names of the active providers in lookup order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Lookup resolves the lyric sheet for a song. The cache short-circuits the
// provider chain; a miss walks providers in configured order and caches the
// first hit. Transport failures fall through to the next provider, and only
// surface when every provider comes up empty.
func (s *Service) Lookup(ctx context.Context, song models.SongInfo) (*models.Lyrics, error) {
	if s.cache != nil && song.VideoID != "" {
		cached, err := s.cache.Get(ctx, song.VideoID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, shared.ErrLyricsNotFound) {
			s.logger.Error("lyrics cache read failed", "video_id", song.VideoID, "err", err)
		}
	}

	var lastErr error
	for _, p := range s.providers {
		lyrics, err := p.Search(ctx, song.Title, song.Artist)
		if err != nil {
			if errors.Is(err, shared.ErrLyricsNotFound) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("lyrics provider failed", "provider", p.Name(), "err", err)
			lastErr = err
			continue
		}

		lyrics.VideoID = song.VideoID
		if s.cache != nil && song.VideoID != "" {
			if err := s.cache.Put(ctx, lyrics); err != nil {
				s.logger.Error("lyrics cache write failed", "video_id", song.VideoID, "err", err)
			}
		}
		return lyrics, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrLyricsNotFound, lastErr)
	}
	return nil, shared.ErrLyricsNotFound
}
