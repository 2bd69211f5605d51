package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/recents/internal/shared"
)

func TestResolveSegments(t *testing.T) {
	ctx := context.Background()
	names := []string{"Recently Added", "Older Recently Added"}

	t.Run("Creates And Persists Playlists On First Run", func(t *testing.T) {
		svc := newFakeLibrary()
		st := newFakeStore()
		s := newTestSyncer(svc, st, names, 200)

		segments, err := s.ResolveSegments(ctx, nil)
		if err != nil {
			t.Fatalf("ResolveSegments() error = %v", err)
		}
		if len(segments) != 2 {
			t.Fatalf("got %d segments, want 2", len(segments))
		}
		if svc.createCalls != 2 {
			t.Errorf("created %d playlists, want 2", svc.createCalls)
		}
		for i, seg := range segments {
			if seg.Name != names[i] {
				t.Errorf("segment %d name = %q, want %q", i, seg.Name, names[i])
			}
			if seg.Index != i {
				t.Errorf("segment %d index = %d", i, seg.Index)
			}
			if seg.WindowSize != 200 {
				t.Errorf("segment %d window size = %d, want 200", i, seg.WindowSize)
			}
			if seg.ID == "" {
				t.Errorf("segment %d has no playlist id", i)
			}
		}

		raw, found, err := st.Get(ctx, s.segmentsKey)
		if err != nil || !found {
			t.Fatalf("mapping not persisted (found=%v err=%v)", found, err)
		}
		var records []segmentRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			t.Fatalf("failed to decode persisted mapping: %v", err)
		}
		if len(records) != 2 || records[0].Name != names[0] {
			t.Errorf("persisted mapping = %+v", records)
		}
	})

	t.Run("Reuses Persisted Mapping", func(t *testing.T) {
		svc := newFakeLibrary()
		st := newFakeStore()
		s := newTestSyncer(svc, st, names, 200)

		if _, err := s.ResolveSegments(ctx, nil); err != nil {
			t.Fatalf("first ResolveSegments() error = %v", err)
		}
		segments, err := s.ResolveSegments(ctx, nil)
		if err != nil {
			t.Fatalf("second ResolveSegments() error = %v", err)
		}
		if svc.createCalls != 2 {
			t.Errorf("created %d playlists across two resolves, want 2", svc.createCalls)
		}
		if segments[0].ID != "pl1" || segments[1].ID != "pl2" {
			t.Errorf("segments = %+v, want persisted ids", segments)
		}
	})

	t.Run("Fails On Name Count Mismatch", func(t *testing.T) {
		svc := newFakeLibrary()
		st := newFakeStore()

		if _, err := newTestSyncer(svc, st, names, 200).ResolveSegments(ctx, nil); err != nil {
			t.Fatalf("setup ResolveSegments() error = %v", err)
		}

		s := newTestSyncer(svc, st, append(names, "Even Older Recently Added"), 200)
		_, err := s.ResolveSegments(ctx, nil)
		if !errors.Is(err, shared.ErrSegmentMismatch) {
			t.Errorf("error = %v, want ErrSegmentMismatch", err)
		}
	})

	t.Run("Fails On Renamed Playlist", func(t *testing.T) {
		svc := newFakeLibrary()
		st := newFakeStore()

		if _, err := newTestSyncer(svc, st, names, 200).ResolveSegments(ctx, nil); err != nil {
			t.Fatalf("setup ResolveSegments() error = %v", err)
		}

		s := newTestSyncer(svc, st, []string{"Recently Added", "Renamed"}, 200)
		_, err := s.ResolveSegments(ctx, nil)
		if !errors.Is(err, shared.ErrSegmentMismatch) {
			t.Errorf("error = %v, want ErrSegmentMismatch", err)
		}
	})

	t.Run("Fails Without Configured Names", func(t *testing.T) {
		s := newTestSyncer(newFakeLibrary(), newFakeStore(), nil, 200)
		_, err := s.ResolveSegments(ctx, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})
}
