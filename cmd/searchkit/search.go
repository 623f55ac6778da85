package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Run one search and print the results",
		ArgsUsage: "<query>",
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return errors.New("a query is required")
			}
			return runSearch(ctx, c, query)
		},
	}
}

func runSearch(ctx context.Context, c *cli.Command, query string) error {
	s, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	p := newProgress(os.Stderr, nil)
	searcher, err := s.newSearcher(c, p.onChange)
	if err != nil {
		return err
	}
	defer searcher.Close()

	st, err := searcher.SearchAndWait(ctx, query)
	if err != nil && st.Err == nil {
		return err
	}
	renderResults(os.Stdout, st)
	return st.Err
}
