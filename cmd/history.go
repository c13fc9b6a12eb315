package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recent searches, most recent first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}

	history := lib.History()
	if cmd.Bool("json") {
		return r.writeJSON(history, cmd.Bool("pretty"))
	}

	if len(history) == 0 {
		return r.writePlain("No recent searches\n")
	}
	for i, term := range history {
		r.writePlain("%d. %s\n", i+1, term)
	}
	return nil
}

func termArg(cmd *cli.Command) (string, error) {
	term := strings.TrimSpace(cmd.StringArg("term"))
	if term == "" {
		return "", fmt.Errorf("%w: term", shared.ErrMissingArgument)
	}
	return term, nil
}

// HistoryAdd records a search term.
func (r *Runner) HistoryAdd(ctx context.Context, cmd *cli.Command) error {
	term, err := termArg(cmd)
	if err != nil {
		return err
	}
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	if err := lib.AddSearchTerm(ctx, term); err != nil {
		return err
	}
	return r.writePlain("✓ Recorded %q\n", term)
}

// HistoryRemove forgets a search term. Unknown terms are ignored.
func (r *Runner) HistoryRemove(ctx context.Context, cmd *cli.Command) error {
	term, err := termArg(cmd)
	if err != nil {
		return err
	}
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	if err := lib.RemoveSearchTerm(ctx, term); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %q\n", term)
}

// HistoryClear forgets every search term.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	if err := lib.ClearHistory(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Search history cleared\n")
}
