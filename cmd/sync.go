package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/recents/internal/repositories"
	"github.com/desertthunder/recents/internal/shared"
	"github.com/desertthunder/recents/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync the recently-added playlists with your saved tracks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output results as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Skip recording the run in the local database",
			},
		},
		Action: r.Sync,
	}
}

// Sync authenticates from the cached token, reconciles every managed
// playlist, and records the run in the local history database.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	syncer := tasks.NewSyncer(tasks.SyncerOpts{
		Service:     r.spotify,
		Store:       r.store,
		Logger:      r.logger,
		Names:       r.config.Playlists.Names,
		WindowSize:  r.config.Playlists.WindowSize,
		Public:      r.config.Playlists.Public,
		SegmentsKey: r.config.Store.SegmentsKey,
		RateLimit:   r.config.Sync.RateLimit,
	})

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Total > 0 {
				r.writePlain("[%s] %s (%d/%d)\n", update.Phase, update.Message, update.Step, update.Total)
			} else {
				r.writePlain("[%s] %s\n", update.Phase, update.Message)
			}
		}
	}()

	started := time.Now()
	result, runErr := syncer.Run(ctx, progress)
	close(progress)
	<-done
	finished := time.Now()

	if result != nil && !cmd.Bool("no-history") && r.config.Database.Path != "" {
		if err := r.recordRun(started, finished, result); err != nil {
			r.logger.Warn("failed to record run history", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainln("✓ %s", result.Message)
	for _, res := range result.Results {
		r.writePlain("  %s: +%d -%d (duplicates %d, moves %d)\n",
			res.SegmentName, res.Added, res.Removed, res.DuplicatesRemoved, res.Moved)
	}
	return nil
}

// authenticate loads the cached token, installs it on the service, and wires
// refreshed tokens back into the store.
func (r *Runner) authenticate(ctx context.Context) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials not configured", shared.ErrMissingCredentials)
	}
	if r.tokens == nil {
		return fmt.Errorf("%w: no token store configured", shared.ErrNotAuthenticated)
	}

	token, found, err := r.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cached token: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: run `recents auth login` first", shared.ErrNotAuthenticated)
	}

	if err := r.spotify.Authenticate(ctx, token); err != nil {
		return err
	}

	r.spotify.SetTokenRefreshCallback(func(refreshed *oauth2.Token) {
		if err := r.tokens.Save(ctx, refreshed); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			r.logger.Debug("persisted refreshed token")
		}
	})

	return nil
}

// recordRun writes the run outcome into the sync history tables.
func (r *Runner) recordRun(started, finished time.Time, result *tasks.RunResult) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	id, err := repositories.NewRunRepository(db).Record(started, finished, result)
	if err != nil {
		return err
	}

	r.logger.Info("run recorded", "id", id, "status", result.Status)
	return nil
}
