package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/recents/internal/repositories"
	"github.com/desertthunder/recents/internal/shared"
	"github.com/urfave/cli/v3"
)

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of runs to show",
				Value:   10,
			},
			&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
			&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
		},
		Action: r.History,
	}
}

// History lists recent sync runs from the local database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Path == "" {
		return r.writePlain("History recording is disabled (no database path configured).\n")
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	runs, err := repositories.NewRunRepository(db).ListRecent(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No sync runs recorded yet.\n")
		return nil
	}

	r.writePlainHeader("Sync History")
	for _, run := range runs {
		marker := "✓"
		if run.Status != "success" {
			marker = "✗"
		}
		r.writePlain("%s %s  %s\n", marker, run.StartedAt.Local().Format(time.RFC3339), run.Status)
		for _, res := range run.Results {
			r.writePlain("    %s: +%d -%d (duplicates %d, moves %d)\n",
				res.SegmentName, res.Added, res.Removed, res.DuplicatesRemoved, res.Moved)
		}
		if run.Message != "" && run.Status != "success" {
			r.writePlain("    %s\n", run.Message)
		}
	}
	return nil
}
