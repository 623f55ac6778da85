// Command searchkit runs retriever searches from the terminal.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "searchkit",
		Usage: "Search a retriever with streaming stage progress",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Configuration environment (reads config/<env>.yaml)",
				Value:   "local",
				Sources: cli.EnvVars("ENV"),
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "Public retriever slug or ret_sk_ secret key (overrides retriever.project_key)",
				Sources: cli.EnvVars("SEARCHKIT_PROJECT_KEY"),
			},
			&cli.StringFlag{
				Name:  "slug",
				Usage: "Retriever slug used with a secret key",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Retriever API base URL",
			},
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Filter input as field=value (repeatable, comma-separated values become a list)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results (overrides retriever.max_results)",
			},
			&cli.BoolFlag{
				Name:  "no-stream",
				Usage: "Use buffered execute calls",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			SearchCommand(),
			WatchCommand(),
			VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
