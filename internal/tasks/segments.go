package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/recents/internal/shared"
)

// segmentRecord is the persisted form of a managed playlist binding.
type segmentRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ResolveSegments loads the persisted playlist mapping from the store, or
// creates the playlists and persists a fresh mapping on first run.
//
// The configured name list must match the persisted records exactly, in
// order. Any drift fails with ErrSegmentMismatch rather than guessing which
// playlist owns which window.
func (s *Syncer) ResolveSegments(ctx context.Context, progress chan<- ProgressUpdate) ([]Segment, error) {
	if len(s.names) == 0 {
		return nil, fmt.Errorf("%w: no playlist names configured", shared.ErrInvalidConfig)
	}

	s.sendProgress(progress, newProgress(PhaseResolveSegments, "", "loading playlist mapping"))

	raw, found, err := s.store.Get(ctx, s.segmentsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist mapping: %w", err)
	}

	var records []segmentRecord
	if found {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode playlist mapping: %w", err)
		}
		if err := s.checkSegments(records); err != nil {
			return nil, err
		}
	} else {
		records, err = s.createSegments(ctx, progress)
		if err != nil {
			return nil, err
		}
	}

	segments := make([]Segment, len(records))
	for i, rec := range records {
		segments[i] = Segment{
			Name:       rec.Name,
			ID:         rec.ID,
			Index:      i,
			WindowSize: s.windowSize,
		}
	}
	return segments, nil
}

// checkSegments verifies the persisted records match the configured names
// pairwise and in order.
func (s *Syncer) checkSegments(records []segmentRecord) error {
	if len(records) != len(s.names) {
		return fmt.Errorf("%w: configured %d names but store has %d playlists",
			shared.ErrSegmentMismatch, len(s.names), len(records))
	}
	for i, rec := range records {
		if rec.Name != s.names[i] {
			return fmt.Errorf("%w: position %d configured as %q but store has %q",
				shared.ErrSegmentMismatch, i, s.names[i], rec.Name)
		}
	}
	return nil
}

// createSegments creates one playlist per configured name and persists the
// resulting mapping. Runs only when the store holds no mapping yet.
func (s *Syncer) createSegments(ctx context.Context, progress chan<- ProgressUpdate) ([]segmentRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	user, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	records := make([]segmentRecord, 0, len(s.names))
	for i, name := range s.names {
		s.sendProgress(progress, newStepProgress(PhaseResolveSegments, name, i+1, len(s.names),
			fmt.Sprintf("creating playlist %s", name)))

		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		playlist, err := s.svc.CreatePlaylist(ctx, user.ID, name, s.public)
		if err != nil {
			return nil, fmt.Errorf("failed to create playlist %s: %w", name, err)
		}

		s.logger.Info("created playlist", "name", name, "id", playlist.ID)
		records = append(records, segmentRecord{Name: name, ID: playlist.ID})
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlist mapping: %w", err)
	}
	if err := s.store.Put(ctx, s.segmentsKey, raw); err != nil {
		return nil, fmt.Errorf("failed to persist playlist mapping: %w", err)
	}

	return records, nil
}
