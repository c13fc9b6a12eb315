// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/limuzic/internal/tasks"
	"github.com/urfave/cli/v3"
)

func outputFlags(prettyDefault bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: prettyDefault,
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Print the resolved configuration",
				Action: r.SetupShowConfig,
			},
			{
				Name:   "state",
				Usage:  "List the stored state blobs",
				Flags:  outputFlags(false),
				Action: r.SetupState,
			},
			{
				Name:  "reset",
				Usage: "Delete a stored state blob (playlists or searchHistory); defaults are restored on next start",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.SetupReset,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// catalogCommand handles catalog browsing
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse the music catalog",
		Commands: []*cli.Command{
			{
				Name:   "home",
				Usage:  "Show the home feed",
				Flags:  outputFlags(false),
				Action: r.CatalogHome,
			},
			{
				Name:   "artists",
				Usage:  "Show the artists feed",
				Flags:  outputFlags(false),
				Action: r.CatalogArtists,
			},
			{
				Name:   "trending",
				Usage:  "Show trending tracks",
				Flags:  outputFlags(false),
				Action: r.CatalogTrending,
			},
			{
				Name:      "search",
				Usage:     "Search the catalog and record the query in search history",
				ArgsUsage: "<query>",
				Flags: append(outputFlags(false), &cli.BoolFlag{
					Name:  "no-history",
					Usage: "Do not record the query in search history",
				}),
				Action: r.CatalogSearch,
			},
			{
				Name:  "raw",
				Usage: "Direct GET to the catalog service, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  outputFlags(true),
				Action: r.CatalogRaw,
			},
		},
	}
}

// playlistCommand handles library playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  outputFlags(false),
				Action: r.PlaylistList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist (the default playlist cannot be deleted)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistDelete,
			},
			{
				Name:  "show",
				Usage: "Show the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(false),
				Action: r.PlaylistShow,
			},
			{
				Name:  "toggle",
				Usage: "Add a track to a playlist, or remove it when already present",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistToggle,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to CSV, Markdown, M3U or text",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md, m3u, txt",
						Value:   "m3u",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory (defaults to the playlist ID)",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "export-all",
				Usage: "Export every playlist concurrently and write a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md, m3u, txt",
						Value:   "m3u",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (defaults to limuzic_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent export workers",
						Value: tasks.DefaultWorkers,
					},
				},
				Action: r.PlaylistExportAll,
			},
		},
	}
}

// historyCommand handles search history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Manage recent searches",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List recent searches, most recent first",
				Flags:  outputFlags(false),
				Action: r.HistoryList,
			},
			{
				Name:  "add",
				Usage: "Record a search term",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Action: r.HistoryAdd,
			},
			{
				Name:  "remove",
				Usage: "Forget a search term",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Action: r.HistoryRemove,
			},
			{
				Name:   "clear",
				Usage:  "Forget all search terms",
				Action: r.HistoryClear,
			},
		},
	}
}

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "simulate",
			Usage: "Use the simulated clock backend instead of the configured one",
		},
	}
}

func contextFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "view",
			Usage: "Browse view: home, artists, trending",
			Value: "home",
		},
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Search query (overrides --view)",
		},
		&cli.StringFlag{
			Name:    "playlist",
			Aliases: []string{"p"},
			Usage:   "Play a library playlist by ID",
		},
	}
}

// playCommand plays a context without a UI
func playCommand(r *Runner) *cli.Command {
	flags := append(backendFlags(), contextFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "track",
			Usage: "Track ID to start with (defaults to the first track)",
		},
		&cli.BoolFlag{
			Name:  "shuffle",
			Usage: "Enable shuffle",
		},
		&cli.StringFlag{
			Name:  "repeat",
			Usage: "Repeat mode: off, all, one",
			Value: "off",
		},
	)

	return &cli.Command{
		Name:   "play",
		Usage:  "Play a feed, search or playlist headlessly until interrupted or the queue ends",
		Flags:  flags,
		Action: r.Play,
	}
}

// tuiCommand returns the top-level TUI command for the interactive player.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal player",
		Flags: append(backendFlags(), &cli.StringFlag{
			Name:  "log-file",
			Usage: "Log file used while the TUI owns the terminal",
			Value: "./tmp/limuzic-tui.log",
		}),
		Action: r.TUI,
	}
}

// serveCommand runs the local remote-control API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a playback session controlled over a local HTTP API",
		Flags: append(backendFlags(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to server.port)",
			},
		),
		Action: r.Serve,
	}
}

// openCommand opens a track's watch page.
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open a track in the browser",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "track"},
		},
		Action: r.Open,
	}
}
