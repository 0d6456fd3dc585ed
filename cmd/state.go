package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytmd/internal/formatter"
	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/observer"
	"github.com/desertthunder/ytmd/internal/songfeed"
	"github.com/urfave/cli/v3"
)

// stateWait bounds how long the command waits for the renderer to answer the
// refresh requests before printing whatever arrived.
const stateWait = 2 * time.Second

// State connects to a running host, asks the renderer to re-announce its
// status, and prints the assembled player state as JSON.
func (r *Runner) State(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.BridgeAddr()
	}

	client, err := r.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("no companion host at %s (is 'ytmd run' running?): %w", addr, err)
	}
	defer client.Close()

	feed := songfeed.New(client, r.logger)
	defer feed.Close()

	// debounce disabled: one answer per refresh is all we get
	obs := observer.New(client, feed, observer.Options{
		Debounce: -1,
		Logger:   r.logger,
	})
	defer obs.Close()

	changed := make(chan struct{}, 1)
	off := obs.OnChange(func(models.PlayerState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer off()

	client.Send(ipc.ChanRefreshLikeStatus, nil)
	client.Send(ipc.ChanRefreshRepeatStatus, nil)
	client.Send(ipc.ChanRefreshShuffleStatus, nil)

	timer := time.NewTimer(stateWait)
	defer timer.Stop()
	select {
	case <-changed:
		// give the remaining answers a moment to land
		time.Sleep(100 * time.Millisecond)
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	data, err := formatter.StateToJSON(obs.State())
	if err != nil {
		return err
	}
	return r.writeJSON(data)
}
