// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and the lyrics cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file and initialize the lyrics cache",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// runCommand starts the companion host.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the companion: websocket bridge, plugins, tray menu",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Bridge listen address, overrides [bridge] in config",
			},
		},
		Action: r.Run,
	}
}

// pluginsCommand lists and describes the registered plugins.
func pluginsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plugins",
		Usage: "Inspect the companion's plugins",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List plugins and their configured state",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PluginsList,
			},
			{
				Name:  "describe",
				Usage: "Show one plugin's details",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "name",
					},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.PluginsDescribe,
			},
		},
	}
}

// lyricsCommand fetches lyrics, either one-shot or as a live overlay.
func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Fetch lyrics; with no flags, attach to a running host as an overlay",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "title",
				Usage: "Song title for a one-shot lookup",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Song artist for a one-shot lookup",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the sheet to a .lrc file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Bridge address of the running host, overrides config",
			},
		},
		Action: r.Lyrics,
	}
}

// stateCommand dumps the player state of a running host.
func stateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Dump the current player state as JSON",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Bridge address of the running host, overrides config",
			},
		},
		Action: r.State,
	}
}
