package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/shared"
	tu "github.com/desertthunder/ytmd/internal/testing"
	"github.com/urfave/cli/v3"
)

// testRunner builds a runner writing to an in-memory buffer with logging
// silenced, plus the CLI command tree around it.
func testRunner() (*Runner, *cli.Command, *bytes.Buffer) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
	app := &cli.Command{Name: "ytmd", Commands: runner.register()}
	return runner, app, output
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config")
			}
			if runner.output != os.Stdout {
				t.Error("expected stdout output")
			}
			if runner.dial == nil || runner.newSet == nil {
				t.Error("expected default dial and plugin set")
			}
		})
	})

	t.Run("Setup", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		dir := t.TempDir()
		tu.MustChdir(t, dir)
		defer tu.MustChdir(t, wd)

		_, app, _ := testRunner()

		if err := app.Run(context.Background(), []string{"ytmd", "setup"}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "ytmd.db"))

		content := tu.MustReadFile(t, filepath.Join(dir, "config.toml"))
		if !strings.Contains(content, "[plugins.quickcontrols]") {
			t.Error("config template missing plugin section")
		}

		// running setup again against the existing config is fine
		_, again, _ := testRunner()
		if err := again.Run(context.Background(), []string{"ytmd", "setup"}); err != nil {
			t.Fatalf("second setup failed: %v", err)
		}
	})

	t.Run("PluginsList", func(t *testing.T) {
		_, app, output := testRunner()

		if err := app.Run(context.Background(), []string{"ytmd", "plugins", "list"}); err != nil {
			t.Fatalf("plugins list failed: %v", err)
		}

		for _, name := range []string{"quickcontrols", "lyricsview", "shortcuts"} {
			if !strings.Contains(output.String(), name) {
				t.Errorf("listing missing %q, got: %s", name, output.String())
			}
		}
	})

	t.Run("PluginsList JSON", func(t *testing.T) {
		_, app, output := testRunner()

		if err := app.Run(context.Background(), []string{"ytmd", "plugins", "list", "--json"}); err != nil {
			t.Fatalf("plugins list --json failed: %v", err)
		}

		var infos []plugins.Info
		if err := json.Unmarshal(output.Bytes(), &infos); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(infos) != 3 {
			t.Errorf("expected 3 plugins, got %d", len(infos))
		}
	})

	t.Run("PluginsDescribe", func(t *testing.T) {
		_, app, output := testRunner()

		if err := app.Run(context.Background(), []string{"ytmd", "plugins", "describe", "quickcontrols"}); err != nil {
			t.Fatalf("plugins describe failed: %v", err)
		}
		if !strings.Contains(output.String(), "Name: quickcontrols") {
			t.Errorf("unexpected details: %s", output.String())
		}

		_, app, _ = testRunner()
		err := app.Run(context.Background(), []string{"ytmd", "plugins", "describe", "nonexistent"})
		if err == nil {
			t.Error("expected error for unknown plugin")
		}
	})

	t.Run("State", func(t *testing.T) {
		bus := ipc.NewBus(shared.NewLogger(io.Discard))
		defer bus.Close()
		bs := ipc.NewBridgeServer(bus, "127.0.0.1:0", shared.NewLogger(io.Discard))
		srv := httptest.NewServer(bs.Handler())
		defer srv.Close()
		addr := strings.TrimPrefix(srv.URL, "http://")

		// fake renderer answering the refresh requests
		renderer, err := ipc.Dial(context.Background(), addr)
		if err != nil {
			t.Fatalf("renderer dial: %v", err)
		}
		defer renderer.Close()
		renderer.On(ipc.ChanRefreshRepeatStatus, func(json.RawMessage) {
			renderer.Send(ipc.ChanRepeatChanged, ipc.RepeatChanged{Mode: "ALL"})
		})
		renderer.On(ipc.ChanRefreshShuffleStatus, func(json.RawMessage) {
			renderer.Send(ipc.ChanShuffleChanged, ipc.ShuffleChanged{IsShuffled: true})
		})
		time.Sleep(20 * time.Millisecond)

		_, app, output := testRunner()

		if err := app.Run(context.Background(), []string{"ytmd", "state", "--addr", addr}); err != nil {
			t.Fatalf("state failed: %v", err)
		}

		var state models.PlayerState
		if err := json.Unmarshal(output.Bytes(), &state); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if state.RepeatMode != models.RepeatAll || !state.IsShuffled {
			t.Errorf("unexpected state: %+v", state)
		}
	})

	t.Run("State Without Host", func(t *testing.T) {
		_, app, _ := testRunner()

		err := app.Run(context.Background(), []string{"ytmd", "state", "--addr", "127.0.0.1:1"})
		if err == nil {
			t.Error("expected dial failure")
		}
	})

	t.Run("Lyrics One-Shot", func(t *testing.T) {
		lrclib := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"trackName":"Song","artistName":"Artist","syncedLyrics":"[00:10.00] hello"}`)
		}))
		defer lrclib.Close()

		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "config.toml")
		cfg := fmt.Sprintf("[database]\npath = %q\n\n[plugins.lyrics]\nenabled = true\nproviders = [\"lrclib\"]\n\n[credentials.lrclib]\nbase_url = %q\nrate_limit = 100.0\n",
			filepath.Join(dir, "cache.db"), lrclib.URL)
		if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		_, app, output := testRunner()

		err := app.Run(context.Background(), []string{
			"ytmd", "lyrics", "-c", cfgPath, "--title", "Song", "--artist", "Artist",
		})
		if err != nil {
			t.Fatalf("lyrics failed: %v", err)
		}
		if !strings.Contains(output.String(), "hello") {
			t.Errorf("output missing lyric line: %s", output.String())
		}

		t.Run("LRC Export", func(t *testing.T) {
			_, app, output := testRunner()
			lrcPath := filepath.Join(dir, "song.lrc")
			err := app.Run(context.Background(), []string{
				"ytmd", "lyrics", "-c", cfgPath, "--title", "Song", "--artist", "Artist", "-o", lrcPath,
			})
			if err != nil {
				t.Fatalf("lyrics export failed: %v", err)
			}
			tu.AssertFileExists(t, lrcPath)
			if !strings.Contains(tu.MustReadFile(t, lrcPath), "[00:10.00] hello") {
				t.Error("exported LRC missing stamped line")
			}
			if !strings.Contains(output.String(), lrcPath) {
				t.Errorf("expected confirmation naming %s, got: %s", lrcPath, output.String())
			}
		})
	})
}
