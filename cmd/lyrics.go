package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmd/internal/formatter"
	"github.com/desertthunder/ytmd/internal/lyrics"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/repositories"
	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/desertthunder/ytmd/internal/songfeed"
	"github.com/desertthunder/ytmd/internal/ui"
	"github.com/urfave/cli/v3"
)

// Lyrics fetches a lyric sheet. With --title it performs a one-shot provider
// lookup; otherwise it attaches to a running host and opens the overlay.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	if title := cmd.String("title"); title != "" {
		return r.lyricsOnce(ctx, config, title, cmd.String("artist"), cmd.String("output"))
	}
	return r.lyricsOverlay(ctx, config, cmd.String("addr"))
}

// lyricsOnce walks the provider chain directly, without a running host.
func (r *Runner) lyricsOnce(ctx context.Context, config *shared.Config, title, artist, output string) error {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open lyrics cache: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to migrate lyrics cache: %w", err)
	}

	svc, err := lyrics.NewService(config, repositories.NewLyricsRepository(db), r.logger)
	if err != nil {
		return err
	}

	sheet, err := svc.Lookup(ctx, models.SongInfo{Title: title, Artist: artist})
	if err != nil {
		return fmt.Errorf("no lyrics for %q: %w", title, err)
	}

	if output != "" {
		path, err := formatter.WriteLyricsExport(sheet, output)
		if err != nil {
			return err
		}
		return r.writePlain("wrote %s\n", path)
	}
	return r.writePlain("%s", formatter.LyricsToText(sheet))
}

// lyricsOverlay attaches to a running host over the bridge and follows the
// playing song.
func (r *Runner) lyricsOverlay(ctx context.Context, config *shared.Config, addr string) error {
	if addr == "" {
		addr = config.BridgeAddr()
	}

	client, err := r.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("no companion host at %s (is 'ytmd run' running?): %w", addr, err)
	}
	defer client.Close()

	// logs go to a file while the TUI owns the terminal
	fileLogger, err := shared.NewFileLogger("./tmp/ytmd-lyrics.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	feed := songfeed.New(client, fileLogger)
	defer feed.Close()

	model := ui.NewModel(ctx, client, feed)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running overlay: %w", err)
	}
	return nil
}
