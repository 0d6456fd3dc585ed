package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytmd/internal/ipc"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/desertthunder/ytmd/internal/songfeed"
	"github.com/urfave/cli/v3"
)

// Run starts the companion host: the websocket bridge the renderer connects
// to, the song feed, and every enabled plugin. Blocks until interrupted or a
// plugin requests exit.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.BridgeAddr()
	}

	if config.Plugins.QuickControls.Enabled {
		if err := widgetBackendCheck(); err != nil {
			return err
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := ipc.NewBus(r.logger)
	defer bus.Close()

	feed := songfeed.New(bus, r.logger)
	defer feed.Close()

	bridge := ipc.NewBridgeServer(bus, addr, r.logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- bridge.Serve()
	}()
	defer bridge.Close()

	manager := plugins.NewManager(plugins.Context{
		Config: config,
		Bus:    bus,
		Feed:   feed,
		Logger: r.logger,
		Quit:   stop,
	})
	for _, p := range r.newSet() {
		if err := manager.Register(p); err != nil {
			return fmt.Errorf("failed to register plugin: %w", err)
		}
	}

	manager.StartAll()
	defer manager.StopAll()

	for _, info := range manager.List() {
		r.logger.Info("plugin", "name", info.Name, "state", info.State)
	}

	select {
	case <-runCtx.Done():
		r.logger.Info("shutting down")
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("bridge server failed: %w", err)
		}
		return nil
	}
}
