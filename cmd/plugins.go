package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmd/internal/formatter"
	"github.com/desertthunder/ytmd/internal/plugins"
	"github.com/urfave/cli/v3"
)

// registry builds an unstarted manager over the default plugin set so the
// CLI can report names, descriptions, and configured state without a host.
func (r *Runner) registry(configPath string) (*plugins.Manager, error) {
	config := r.loadConfig(configPath)

	manager := plugins.NewManager(plugins.Context{Config: config, Logger: r.logger})
	for _, p := range r.newSet() {
		if err := manager.Register(p); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// PluginsList prints the plugin table, or JSON with --json.
func (r *Runner) PluginsList(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.registry(cmd.String("config"))
	if err != nil {
		return err
	}

	infos := manager.List()
	if cmd.Bool("json") {
		data, err := formatter.PluginsToJSON(infos)
		if err != nil {
			return err
		}
		return r.writeJSON(data)
	}

	return r.writePlain("%s", formatter.PluginsToText(infos))
}

// PluginsDescribe prints one plugin's details.
func (r *Runner) PluginsDescribe(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("plugin name argument is required")
	}

	manager, err := r.registry(cmd.String("config"))
	if err != nil {
		return err
	}

	for _, info := range manager.List() {
		if info.Name == name {
			return r.writePlain("%s", formatter.PluginToText(info))
		}
	}
	return fmt.Errorf("unknown plugin %q", name)
}
