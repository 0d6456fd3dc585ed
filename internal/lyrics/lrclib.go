// LRCLIB implementation of [Provider]
//
// API documented at https://lrclib.net/docs
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
	"golang.org/x/time/rate"
)

const lrclibBaseURL = "https://lrclib.net"

// lrclibRecord is the response shape of GET /api/get.
type lrclibRecord struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// LRCLibProvider implements the Provider interface against the LRCLIB API.
// Requests are throttled with a [rate.Limiter] since the service is a free
// community instance.
type LRCLibProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLRCLibProvider creates an LRCLIB provider. A zero rate limit falls back
// to 2 requests per second.
func NewLRCLibProvider(config shared.LRCLibConfig) *LRCLibProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = lrclibBaseURL
	}
	limit := config.RateLimit
	if limit <= 0 {
		limit = 2
	}
	return &LRCLibProvider{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
	}
}

func (p *LRCLibProvider) Name() string {
	return "lrclib"
}

// Search fetches the best match for the track. LRCLIB answers 404 for
// unknown tracks, which maps to [shared.ErrLyricsNotFound].
func (p *LRCLibProvider) Search(ctx context.Context, title, artist string) (*models.Lyrics, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("track_name", title)
	query.Set("artist_name", artist)
	endpoint := fmt.Sprintf("%s/api/get?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, shared.ErrLyricsNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lrclib API error: status %d", resp.StatusCode)
	}

	var record lrclibRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return record.lyrics()
}

// lyrics converts an API record, preferring the synced sheet over the plain
// one. Instrumentals and empty records count as not found.
func (r lrclibRecord) lyrics() (*models.Lyrics, error) {
	out := &models.Lyrics{
		Title:  r.TrackName,
		Artist: r.ArtistName,
		Source: "lrclib",
	}

	if r.SyncedLyrics != "" {
		out.Synced = true
		out.Lines = ParseLRC(r.SyncedLyrics)
		return out, nil
	}
	if r.PlainLyrics != "" {
		out.Lines = PlainLines(r.PlainLyrics)
		return out, nil
	}
	return nil, shared.ErrLyricsNotFound
}
