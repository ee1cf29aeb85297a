// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Report format (text, md, csv)",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Also write the report to this file",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, database and session",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing, then create and migrate the database",
				Action: r.SetupDatabase,
			},
			{
				Name:  "session",
				Usage: "Store a browser session captured with \"Copy as cURL\"",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command string",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to save the capture (default: ~/.gmx/session.curl)",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "List playlists with the new session to confirm it works",
					},
				},
				Action: r.SetupSession,
			},
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.PlaylistCreate,
			},
			{
				Name:      "add",
				Usage:     "Add songs to a playlist",
				ArgsUsage: "<playlist-id> <song-id>...",
				Action:    r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a song from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "song"},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.PlaylistDelete,
			},
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  jsonFlags(),
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist and its songs",
				Flags: append(jsonFlags(), &cli.BoolFlag{
					Name:  "by-name",
					Usage: "Treat the argument as an exact playlist name",
				}),
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
				Action:    r.PlaylistShow,
			},
		},
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "track",
		Aliases: []string{"tr"},
		Usage:   "Library track operations",
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a local audio file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.TrackUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete a track from the library",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TrackDelete,
			},
			{
				Name:  "edit",
				Usage: "Change track metadata and verify the change became visible",
				Flags: append(exportFlags(),
					&cli.StringSliceFlag{
						Name:     "set",
						Aliases:  []string{"s"},
						Usage:    "field=value assignment; repeat for several fields",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "no-verify",
						Usage: "Send the change without waiting for it to become visible",
					},
				),
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TrackEdit,
			},
			{
				Name:  "show",
				Usage: "Show a track record, or the whole library without an id",
				Flags: append(jsonFlags(), &cli.BoolFlag{
					Name:  "csv",
					Usage: "Output the library as CSV",
				}),
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TrackShow,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the library",
		Flags: append(jsonFlags(), &cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results",
			Value: 20,
		}),
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Action:    r.Search,
	}
}

func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Resolve a streaming URL for a song",
		ArgsUsage: "<song-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the URL in the default browser",
			},
		},
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action:    r.Stream,
	}
}

func scenarioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "scenario",
		Aliases: []string{"sc"},
		Usage:   "Built-in verification scenarios",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List scenarios",
				Action: r.ScenarioList,
			},
			{
				Name:      "run",
				Usage:     "Run scenarios by name",
				ArgsUsage: "<scenario>...",
				Flags: append(exportFlags(),
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Run every scenario",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Scenarios run at once (default: [scenarios] concurrency)",
					},
					&cli.StringFlag{
						Name:  "song",
						Usage: "Song id for playlist and metadata scenarios (default: [scenarios] song_id)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Audio file for the upload scenario (default: [scenarios] upload_file)",
					},
					&cli.StringFlag{
						Name:  "query",
						Usage: "Query for the search scenario",
					},
					&cli.BoolFlag{
						Name:  "exact-names",
						Usage: "Name playlists without the run-id suffix (default: [scenarios] exact_names)",
					},
				),
				Action: r.ScenarioRun,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recorded scenario runs",
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "List recent runs",
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Only runs of this scenario",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status (succeeded, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
				),
				Action: r.HistoryRuns,
			},
			{
				Name:      "show",
				Usage:     "Show a run with its steps and snapshots",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.HistoryShow,
			},
			{
				Name:  "leftovers",
				Usage: "List entities halted runs did not delete",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only playlist or track leftovers",
					},
				},
				Action: r.HistoryLeftovers,
			},
		},
	}
}

func cleanupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete recorded leftovers from the service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only playlist or track leftovers",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "List what would be deleted",
			},
		},
		Action: r.Cleanup,
	}
}

func sandboxCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sandbox",
		Usage: "Serve an in-memory library on localhost for trying commands and scenarios",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:8787",
			},
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "Delay before metadata writes become visible",
				Value: 2 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "drift",
				Usage: "Bump play counts on every visible write",
			},
		},
		Action: r.Sandbox,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Pick and run scenarios interactively",
		Action: r.TUI,
	}
}
