package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mixpeek/searchkit/internal/version"
)

// VersionCommand creates the version command
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Printf("searchkit %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
			return nil
		},
	}
}
