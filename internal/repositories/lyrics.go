package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// LyricsRepository persists lyric sheets in the lyrics table.
type LyricsRepository struct {
	db *sql.DB
}

// NewLyricsRepository creates a new LyricsRepository with the given database connection
func NewLyricsRepository(db *sql.DB) *LyricsRepository {
	return &LyricsRepository{db: db}
}

// Get loads the cached sheet for a video ID.
// Returns shared.ErrLyricsNotFound on a cache miss.
func (r *LyricsRepository) Get(ctx context.Context, videoID string) (*models.Lyrics, error) {
	query := `
		SELECT video_id, title, artist, source, synced, lines
		FROM lyrics
		WHERE video_id = ?
	`

	var lyrics models.Lyrics
	var rawLines string
	err := r.db.QueryRowContext(ctx, query, videoID).Scan(
		&lyrics.VideoID,
		&lyrics.Title,
		&lyrics.Artist,
		&lyrics.Source,
		&lyrics.Synced,
		&rawLines,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrLyricsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lyrics: %w", err)
	}

	if err := json.Unmarshal([]byte(rawLines), &lyrics.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode cached lines: %w", err)
	}

	return &lyrics, nil
}

// Put stores a sheet, replacing any previous entry for the same video ID.
func (r *LyricsRepository) Put(ctx context.Context, lyrics *models.Lyrics) error {
	if lyrics.VideoID == "" {
		return fmt.Errorf("lyrics missing video ID")
	}

	rawLines, err := json.Marshal(lyrics.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}

	query := `
		INSERT INTO lyrics (video_id, title, artist, source, synced, lines)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			source = excluded.source,
			synced = excluded.synced,
			lines = excluded.lines
	`

	_, err = r.db.ExecContext(ctx, query,
		lyrics.VideoID,
		lyrics.Title,
		lyrics.Artist,
		lyrics.Source,
		lyrics.Synced,
		string(rawLines),
	)
	if err != nil {
		return fmt.Errorf("failed to store lyrics: %w", err)
	}

	return nil
}

// Delete removes the cached sheet for a video ID. Missing rows are a no-op.
func (r *LyricsRepository) Delete(ctx context.Context, videoID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM lyrics WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("failed to delete lyrics: %w", err)
	}
	return nil
}

// Count returns the number of cached sheets.
func (r *LyricsRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lyrics").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lyrics: %w", err)
	}
	return n, nil
}
