package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/recents/internal/shared"
)

// fetchRecentlyAdded returns the ids of saved tracks inside the segment's
// window, most recently saved first. A window past the end of the library
// yields fewer ids than windowSize, possibly none.
func (s *Syncer) fetchRecentlyAdded(ctx context.Context, index, windowSize int) ([]string, error) {
	var all []string
	offset := index * windowSize

	for len(all) < windowSize {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.svc.SavedTracks(ctx, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("%w: empty response at offset %d", shared.ErrTrackFetch, offset)
		}

		ids := page.TrackIDs()
		all = append(all, ids...)
		offset += len(ids)

		if len(ids) < pageLimit {
			break
		}
	}

	if len(all) > windowSize {
		all = all[:windowSize]
	}
	return all, nil
}

// fetchPlaylistTracks returns the full ordered id list of a playlist.
func (s *Syncer) fetchPlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	var all []string
	offset := 0

	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.svc.PlaylistTracks(ctx, playlistID, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("%w: empty response at offset %d", shared.ErrTrackFetch, offset)
		}

		ids := page.TrackIDs()
		all = append(all, ids...)
		offset += len(ids)

		if len(ids) < pageLimit {
			break
		}
	}

	return all, nil
}
