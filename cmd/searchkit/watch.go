package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mixpeek/searchkit"
)

// WatchCommand creates the watch command
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Search each line read from stdin; a new line supersedes the running search",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runWatch(ctx, c)
		},
	}
}

func runWatch(ctx context.Context, c *cli.Command) error {
	s, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	p := newProgress(os.Stderr, func(st searchkit.State) {
		renderResults(os.Stdout, st)
	})
	searcher, err := s.newSearcher(c, p.onChange)
	if err != nil {
		return err
	}
	defer searcher.Close()

	var last <-chan struct{}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		last = searcher.Search(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if last == nil {
		return nil
	}

	select {
	case <-last:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
