package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/recents/internal/shared"
	"github.com/urfave/cli/v3"
)

// segmentEntry mirrors the persisted playlist mapping for display.
type segmentEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

func segmentsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "segments",
		Usage: "Inspect the managed playlist mapping",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the persisted playlist mapping",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
				},
				Action: r.SegmentsShow,
			},
			{
				Name:   "verify",
				Usage:  "Check the mapping against the configured playlist names",
				Action: r.SegmentsVerify,
			},
		},
	}
}

// loadSegments reads the persisted mapping from the store.
func (r *Runner) loadSegments(ctx context.Context) ([]segmentEntry, bool, error) {
	if r.store == nil {
		return nil, false, fmt.Errorf("%w: no store configured", shared.ErrInvalidConfig)
	}

	raw, found, err := r.store.Get(ctx, r.config.Store.SegmentsKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load playlist mapping: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var entries []segmentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to decode playlist mapping: %w", err)
	}
	return entries, true, nil
}

// SegmentsShow prints the persisted playlist mapping.
func (r *Runner) SegmentsShow(ctx context.Context, cmd *cli.Command) error {
	entries, found, err := r.loadSegments(ctx)
	if err != nil {
		return err
	}
	if !found {
		r.writePlain("No playlist mapping stored yet. Run: recents sync\n")
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Managed Playlists")
	for i, entry := range entries {
		r.writePlain("%d. %s (%s)\n", i+1, entry.Name, entry.ID)
	}
	return nil
}

// SegmentsVerify compares the persisted mapping against the configured
// names the same way a sync run would.
func (r *Runner) SegmentsVerify(ctx context.Context, cmd *cli.Command) error {
	entries, found, err := r.loadSegments(ctx)
	if err != nil {
		return err
	}
	if !found {
		r.writePlain("No playlist mapping stored yet; the next sync will create %d playlists.\n",
			len(r.config.Playlists.Names))
		return nil
	}

	names := r.config.Playlists.Names
	if len(entries) != len(names) {
		return fmt.Errorf("%w: configured %d names but store has %d playlists",
			shared.ErrSegmentMismatch, len(names), len(entries))
	}
	for i, entry := range entries {
		if entry.Name != names[i] {
			return fmt.Errorf("%w: position %d configured as %q but store has %q",
				shared.ErrSegmentMismatch, i, names[i], entry.Name)
		}
	}

	r.writePlain("✓ Playlist mapping matches configuration (%d playlists)\n", len(entries))
	return nil
}
