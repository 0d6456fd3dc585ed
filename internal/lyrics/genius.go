// Genius implementation of [Provider]
//
// Search API documented at https://docs.genius.com; the API carries song
// metadata only, so the lyric text is pulled from the public song page.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
	"golang.org/x/oauth2"
)

const geniusBaseURL = "https://api.genius.com"

type geniusHit struct {
	Result struct {
		ID            int    `json:"id"`
		Title         string `json:"title"`
		PrimaryArtist struct {
			Name string `json:"name"`
		} `json:"primary_artist"`
		URL string `json:"url"`
	} `json:"result"`
}

type geniusSearchResponse struct {
	Response struct {
		Hits []geniusHit `json:"hits"`
	} `json:"response"`
}

var (
	lyricsContainer = regexp.MustCompile(`(?s)<div[^>]+data-lyrics-container="true"[^>]*>(.*?)</div>`)
	lineBreak       = regexp.MustCompile(`<br\s*/?>`)
	htmlTag         = regexp.MustCompile(`<[^>]*>`)
)

// GeniusProvider implements the Provider interface for the Genius API.
// Uses [oauth2] bearer authentication against the search endpoint.
type GeniusProvider struct {
	baseURL    string
	apiClient  *http.Client
	pageClient *http.Client
}

// NewGeniusProvider creates a Genius provider from the configured access
// token. Returns [shared.ErrProviderDisabled] when no token is set so the
// service can drop the provider without failing startup.
func NewGeniusProvider(config shared.GeniusConfig) (*GeniusProvider, error) {
	if config.AccessToken == "" {
		return nil, fmt.Errorf("%w: genius access token not configured", shared.ErrProviderDisabled)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken})
	return &GeniusProvider{
		baseURL:    geniusBaseURL,
		apiClient:  oauth2.NewClient(context.Background(), src),
		pageClient: http.DefaultClient,
	}, nil
}

func (p *GeniusProvider) Name() string {
	return "genius"
}

// Search queries the Genius search endpoint and scrapes the top hit's song
// page. Genius only serves unsynced text, so the result is never synced.
func (p *GeniusProvider) Search(ctx context.Context, title, artist string) (*models.Lyrics, error) {
	query := url.Values{}
	query.Set("q", strings.TrimSpace(title+" "+artist))
	endpoint := fmt.Sprintf("%s/search?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("genius API error: status %d", resp.StatusCode)
	}

	var search geniusSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(search.Response.Hits) == 0 {
		return nil, shared.ErrLyricsNotFound
	}

	hit := search.Response.Hits[0].Result
	lines, err := p.scrapePage(ctx, hit.URL)
	if err != nil {
		return nil, err
	}

	return &models.Lyrics{
		Title:  hit.Title,
		Artist: hit.PrimaryArtist.Name,
		Source: "genius",
		Lines:  lines,
	}, nil
}

// scrapePage pulls the lyric text out of the song page's lyric containers.
func (p *GeniusProvider) scrapePage(ctx context.Context, pageURL string) ([]models.LyricLine, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.pageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genius page error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	var blocks []string
	for _, m := range lyricsContainer.FindAllStringSubmatch(string(body), -1) {
		text := lineBreak.ReplaceAllString(m[1], "\n")
		text = htmlTag.ReplaceAllString(text, "")
		blocks = append(blocks, html.UnescapeString(text))
	}
	if len(blocks) == 0 {
		return nil, shared.ErrLyricsNotFound
	}

	lines := PlainLines(strings.Join(blocks, "\n"))
	if len(lines) == 0 {
		return nil, shared.ErrLyricsNotFound
	}
	return lines, nil
}
