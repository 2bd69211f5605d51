package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/desertthunder/recents/internal/shared"
)

func TestFetchRecentlyAdded(t *testing.T) {
	ctx := context.Background()

	t.Run("Pages Until Window Is Full", func(t *testing.T) {
		saved := make([]string, 130)
		for i := range saved {
			saved[i] = fmt.Sprintf("t%d", i)
		}
		svc := newFakeLibrary(saved...)
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 120)

		got, err := s.fetchRecentlyAdded(ctx, 0, 120)
		if err != nil {
			t.Fatalf("fetchRecentlyAdded() error = %v", err)
		}
		if len(got) != 120 {
			t.Fatalf("got %d ids, want 120", len(got))
		}
		if !slices.Equal(got, saved[:120]) {
			t.Error("window does not match library order")
		}
	})

	t.Run("Offsets By Window Index", func(t *testing.T) {
		svc := newFakeLibrary("a", "b", "c", "d", "e")
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 2)

		got, err := s.fetchRecentlyAdded(ctx, 1, 2)
		if err != nil {
			t.Fatalf("fetchRecentlyAdded() error = %v", err)
		}
		if !slices.Equal(got, []string{"c", "d"}) {
			t.Errorf("got %v, want [c d]", got)
		}
	})

	t.Run("Returns Short Window At Library End", func(t *testing.T) {
		svc := newFakeLibrary("a", "b", "c")
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 2)

		got, err := s.fetchRecentlyAdded(ctx, 1, 2)
		if err != nil {
			t.Fatalf("fetchRecentlyAdded() error = %v", err)
		}
		if !slices.Equal(got, []string{"c"}) {
			t.Errorf("got %v, want [c]", got)
		}
	})

	t.Run("Returns Empty Window Past Library End", func(t *testing.T) {
		svc := newFakeLibrary("a", "b")
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 2)

		got, err := s.fetchRecentlyAdded(ctx, 5, 2)
		if err != nil {
			t.Fatalf("fetchRecentlyAdded() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("Propagates Service Errors Unchanged", func(t *testing.T) {
		svc := newFakeLibrary("a")
		svc.savedErr = fmt.Errorf("%w: spotify returned status 401", shared.ErrTokenExpired)
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 2)

		_, err := s.fetchRecentlyAdded(ctx, 0, 2)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("error = %v, want ErrTokenExpired", err)
		}
		if errors.Is(err, shared.ErrTrackFetch) {
			t.Errorf("error = %v, remote failure re-tagged as ErrTrackFetch", err)
		}
	})

	t.Run("Tags Responses Missing The Items Container", func(t *testing.T) {
		svc := newFakeLibrary("a")
		svc.nilPage = true
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 2)

		_, err := s.fetchRecentlyAdded(ctx, 0, 2)
		if !errors.Is(err, shared.ErrTrackFetch) {
			t.Errorf("error = %v, want ErrTrackFetch", err)
		}
	})
}

func TestFetchPlaylistTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("Pages Through The Full Playlist", func(t *testing.T) {
		ids := make([]string, 105)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%d", i)
		}
		svc := newFakeLibrary()
		svc.playlists["pl"] = ids
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 200)

		got, err := s.fetchPlaylistTracks(ctx, "pl")
		if err != nil {
			t.Fatalf("fetchPlaylistTracks() error = %v", err)
		}
		if !slices.Equal(got, ids) {
			t.Errorf("got %d ids, want 105 in order", len(got))
		}
	})

	t.Run("Handles Empty Playlists", func(t *testing.T) {
		svc := newFakeLibrary()
		svc.playlists["pl"] = nil
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 200)

		got, err := s.fetchPlaylistTracks(ctx, "pl")
		if err != nil {
			t.Fatalf("fetchPlaylistTracks() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("Propagates Missing Playlist Errors Unchanged", func(t *testing.T) {
		svc := newFakeLibrary()
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 200)

		_, err := s.fetchPlaylistTracks(ctx, "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Tags Responses Missing The Items Container", func(t *testing.T) {
		svc := newFakeLibrary()
		svc.playlists["pl"] = []string{"a"}
		svc.nilPage = true
		s := newTestSyncer(svc, newFakeStore(), []string{"Recently Added"}, 200)

		_, err := s.fetchPlaylistTracks(ctx, "pl")
		if !errors.Is(err, shared.ErrTrackFetch) {
			t.Errorf("error = %v, want ErrTrackFetch", err)
		}
	})
}
