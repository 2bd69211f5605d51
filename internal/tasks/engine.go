package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/recents/internal/shared"
)

// SyncSegment reconciles one managed playlist against its window of the
// saved-track feed. Mutations run in phases, each re-fetching the playlist
// before the next so every phase works from observed state:
//
//  1. strip duplicate track occurrences
//  2. remove tracks no longer in the window
//  3. insert missing tracks at the head
//  4. reorder remaining tracks into window order
//  5. re-fetch and verify
//
// An already-converged playlist short-circuits with zero mutations.
func (s *Syncer) SyncSegment(ctx context.Context, seg Segment, progress chan<- ProgressUpdate) (SyncResult, error) {
	result := SyncResult{SegmentName: seg.Name}

	s.sendProgress(progress, newProgress(PhaseFetchWindow, seg.Name, "fetching saved tracks"))
	target, err := s.fetchRecentlyAdded(ctx, seg.Index, seg.WindowSize)
	if err != nil {
		return result, err
	}

	s.sendProgress(progress, newProgress(PhaseFetchPlaylist, seg.Name, "fetching playlist tracks"))
	current, err := s.fetchPlaylistTracks(ctx, seg.ID)
	if err != nil {
		return result, err
	}

	if slices.Equal(current, target) {
		result.Converged = true
		s.sendProgress(progress, newProgress(PhaseComplete, seg.Name, "already in sync"))
		return result, nil
	}

	dupes := duplicateOccurrences(current)
	if len(dupes) > 0 {
		s.sendProgress(progress, newProgress(PhaseRemoveDuplicates, seg.Name,
			fmt.Sprintf("removing %d duplicate tracks", len(dupes))))

		if err := s.removeTracks(ctx, seg.ID, dedupe(dupes)); err != nil {
			return result, err
		}
		result.DuplicatesRemoved = len(dupes)

		if current, err = s.fetchPlaylistTracks(ctx, seg.ID); err != nil {
			return result, err
		}
	}

	stale := difference(current, target)
	if len(stale) > 0 {
		s.sendProgress(progress, newProgress(PhaseRemoveStale, seg.Name,
			fmt.Sprintf("removing %d stale tracks", len(stale))))

		if err := s.removeTracks(ctx, seg.ID, stale); err != nil {
			return result, err
		}
		result.Removed = len(stale)

		if current, err = s.fetchPlaylistTracks(ctx, seg.ID); err != nil {
			return result, err
		}
	}

	missing := difference(target, current)
	if len(missing) > 0 {
		s.sendProgress(progress, newProgress(PhaseAddMissing, seg.Name,
			fmt.Sprintf("adding %d tracks", len(missing))))

		if err := s.addTracksAtHead(ctx, seg.ID, missing); err != nil {
			return result, err
		}
		result.Added = len(missing)

		if current, err = s.fetchPlaylistTracks(ctx, seg.ID); err != nil {
			return result, err
		}
	}

	if !slices.Equal(current, target) {
		s.sendProgress(progress, newProgress(PhaseReorder, seg.Name, "reordering tracks"))

		moved, err := s.reorderPlaylist(ctx, seg.ID, current, target)
		result.Moved = moved
		if err != nil {
			return result, err
		}
	}

	s.sendProgress(progress, newProgress(PhaseVerify, seg.Name, "verifying playlist"))
	final, err := s.fetchPlaylistTracks(ctx, seg.ID)
	if err != nil {
		return result, err
	}
	if !slices.Equal(final, target) {
		return result, fmt.Errorf("%w: %s contents differ from the expected window (%d tracks vs %d expected)",
			shared.ErrPlaylistSync, seg.Name, len(final), len(target))
	}

	result.Converged = true
	s.sendProgress(progress, newProgress(PhaseComplete, seg.Name, "playlist synced"))
	return result, nil
}

// removeTracks removes every occurrence of the given ids in batches.
func (s *Syncer) removeTracks(ctx context.Context, playlistID string, ids []string) error {
	for _, batch := range chunk(ids, pageLimit) {
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := s.svc.RemoveTracks(ctx, playlistID, batch); err != nil {
			return fmt.Errorf("failed to remove tracks: %w", err)
		}
	}
	return nil
}

// addTracksAtHead inserts ids at position 0, sending batches in reverse so
// the earliest batch ends up first and relative order inside the window is
// preserved.
func (s *Syncer) addTracksAtHead(ctx context.Context, playlistID string, ids []string) error {
	batches := chunk(ids, pageLimit)
	for i := len(batches) - 1; i >= 0; i-- {
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := s.svc.AddTracks(ctx, playlistID, batches[i], 0); err != nil {
			return fmt.Errorf("failed to add tracks: %w", err)
		}
	}
	return nil
}

// reorderPlaylist moves tracks one at a time until current matches target,
// mirroring each move locally instead of re-fetching. Both lists must hold
// the same id set. Left of position i is already in target order, so each
// move pulls target[i] leftward and at most len(target) moves are issued.
func (s *Syncer) reorderPlaylist(ctx context.Context, playlistID string, current, target []string) (int, error) {
	mirror := slices.Clone(current)
	moved := 0

	for i, id := range target {
		j := slices.Index(mirror, id)
		if j < 0 {
			return moved, fmt.Errorf("%w: track %s missing during reorder", shared.ErrPlaylistSync, id)
		}
		if j == i {
			continue
		}

		if err := s.wait(ctx); err != nil {
			return moved, err
		}
		if err := s.svc.MoveTrack(ctx, playlistID, j, i); err != nil {
			return moved, fmt.Errorf("failed to move track: %w", err)
		}

		mirror = slices.Delete(mirror, j, j+1)
		mirror = slices.Insert(mirror, i, id)
		moved++
	}

	return moved, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		batches = append(batches, ids[:n])
		ids = ids[n:]
	}
	return batches
}

// duplicateOccurrences returns every occurrence of an id after its first,
// repeats included, so the count matches the number of rows a removal of
// those ids will strip beyond the copies that get re-added.
func duplicateOccurrences(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var dupes []string
	for _, id := range ids {
		if seen[id] {
			dupes = append(dupes, id)
		}
		seen[id] = true
	}
	return dupes
}

// dedupe returns ids with later repeats dropped, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

// difference returns the elements of a absent from b, preserving a's order.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []string
	for _, id := range a {
		if !inB[id] {
			out = append(out, id)
		}
	}
	return out
}
