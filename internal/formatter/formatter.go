// package formatter provides functions to render companion data for CLI output (plugin tables, state JSON, lyric sheets)
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/shared"
)

// PluginsToText renders plugin infos as an aligned text table.
func PluginsToText(infos []plugins.Info) []byte {
	var buf bytes.Buffer

	nameWidth := len("NAME")
	for _, info := range infos {
		if len(info.Name) > nameWidth {
			nameWidth = len(info.Name)
		}
	}

	fmt.Fprintf(&buf, "%-*s  %-8s  %s\n", nameWidth, "NAME", "STATE", "DESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(&buf, "%-*s  %-8s  %s\n", nameWidth, info.Name, info.State, info.Description)
	}

	return buf.Bytes()
}

// PluginsToJSON renders plugin infos as a JSON array.
func PluginsToJSON(infos []plugins.Info) ([]byte, error) {
	return shared.MarshalJSON(infos, true)
}

// PluginToText renders one plugin's details as key: value lines.
func PluginToText(info plugins.Info) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Name: %s\n", info.Name)
	fmt.Fprintf(&buf, "State: %s\n", info.State)
	fmt.Fprintf(&buf, "Description: %s\n", info.Description)
	fmt.Fprintf(&buf, "Restart needed: %t\n", info.RestartNeeded)

	return buf.Bytes()
}

// StateToJSON renders a player state snapshot as pretty JSON.
func StateToJSON(state models.PlayerState) ([]byte, error) {
	return shared.MarshalJSON(state, true)
}

// LyricsToText renders a lyric sheet as plain text with a metadata header.
// Synced sheets get m:ss timestamps in front of each line.
func LyricsToText(sheet *models.Lyrics) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s - %s (%s)\n\n", sheet.Artist, sheet.Title, sheet.Source)
	for _, line := range sheet.Lines {
		if sheet.Synced {
			fmt.Fprintf(&buf, "[%s] %s\n", shared.FormatDuration(line.At), line.Text)
		} else {
			fmt.Fprintf(&buf, "%s\n", line.Text)
		}
	}

	return buf.Bytes()
}

// LyricsToLRC renders a synced sheet in LRC format. Unsynced sheets fall back
// to bare text lines without timestamp tags.
func LyricsToLRC(sheet *models.Lyrics) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[ti:%s]\n[ar:%s]\n", sheet.Title, sheet.Artist)
	for _, line := range sheet.Lines {
		if sheet.Synced {
			fmt.Fprintf(&buf, "[%s] %s\n", lrcStamp(line.At), line.Text)
		} else {
			fmt.Fprintf(&buf, "%s\n", line.Text)
		}
	}

	return buf.Bytes()
}

// lrcStamp formats a position as mm:ss.xx.
func lrcStamp(d time.Duration) string {
	mins := int(d / time.Minute)
	secs := int(d/time.Second) % 60
	hundredths := int(d/(10*time.Millisecond)) % 100
	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, hundredths)
}

// WriteLyricsExport writes a sheet to disk in LRC format.
//
// Defaults to {videoID}.lrc as the filename.
func WriteLyricsExport(sheet *models.Lyrics, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s.lrc", sheet.VideoID)
	}

	if err := os.WriteFile(filepath, LyricsToLRC(sheet), 0644); err != nil {
		return "", fmt.Errorf("failed to write lyrics file: %w", err)
	}

	return filepath, nil
}
