package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/recents/internal/services"
	"github.com/desertthunder/recents/internal/shared"
)

// fakeLibrary is an in-memory services.Library with mutation counters.
type fakeLibrary struct {
	mu        sync.Mutex
	saved     []string            // library ids, most recent first
	playlists map[string][]string // playlist id -> ordered track ids
	nextID    int

	addCalls    int
	removeCalls int
	moveCalls   int
	createCalls int

	savedErr error
	moveErr  error
	moveNoop bool // accept moves without applying them
	nilPage  bool // simulate a response without an items container
}

func newFakeLibrary(saved ...string) *fakeLibrary {
	return &fakeLibrary{saved: saved, playlists: map[string][]string{}}
}

func (f *fakeLibrary) page(ids []string, limit, offset int) *services.TrackPage {
	page := &services.TrackPage{Total: len(ids), Limit: limit, Offset: offset}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		page.Items = append(page.Items, services.PageTrack{
			Track: services.Track{ID: ids[i], URI: "spotify:track:" + ids[i]},
		})
	}
	return page
}

func (f *fakeLibrary) SavedTracks(ctx context.Context, limit, offset int) (*services.TrackPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.savedErr != nil {
		return nil, f.savedErr
	}
	if f.nilPage {
		return nil, nil
	}
	return f.page(f.saved, limit, offset), nil
}

func (f *fakeLibrary) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*services.TrackPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	if f.nilPage {
		return nil, nil
	}
	return f.page(ids, limit, offset), nil
}

func (f *fakeLibrary) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	ids := f.playlists[playlistID]
	f.playlists[playlistID] = slices.Insert(slices.Clone(ids), position, trackIDs...)
	return nil
}

func (f *fakeLibrary) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	remove := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		remove[id] = true
	}
	var kept []string
	for _, id := range f.playlists[playlistID] {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	f.playlists[playlistID] = kept
	return nil
}

func (f *fakeLibrary) MoveTrack(ctx context.Context, playlistID string, rangeStart, insertBefore int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	if f.moveErr != nil {
		return f.moveErr
	}
	if f.moveNoop {
		return nil
	}
	ids := slices.Clone(f.playlists[playlistID])
	if rangeStart < 0 || rangeStart >= len(ids) {
		return fmt.Errorf("range_start %d out of bounds", rangeStart)
	}
	id := ids[rangeStart]
	ids = slices.Delete(ids, rangeStart, rangeStart+1)
	at := insertBefore
	if insertBefore > rangeStart {
		at = insertBefore - 1
	}
	f.playlists[playlistID] = slices.Insert(ids, at, id)
	return nil
}

func (f *fakeLibrary) CurrentUser(ctx context.Context) (*services.User, error) {
	return &services.User{ID: "user1", DisplayName: "Test User"}, nil
}

func (f *fakeLibrary) CreatePlaylist(ctx context.Context, userID, name string, public bool) (*services.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.nextID++
	id := fmt.Sprintf("pl%d", f.nextID)
	f.playlists[id] = nil
	return &services.Playlist{ID: id, Name: name, Public: public}, nil
}

func (f *fakeLibrary) Name() string { return "fake" }

func (f *fakeLibrary) tracks(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.playlists[playlistID])
}

func (f *fakeLibrary) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls + f.removeCalls + f.moveCalls
}

// fakeStore is an in-memory store.Store.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]json.RawMessage{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	return raw, ok, nil
}

func (s *fakeStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func newTestSyncer(svc *fakeLibrary, st *fakeStore, names []string, windowSize int) *Syncer {
	return NewSyncer(SyncerOpts{
		Service:    svc,
		Store:      st,
		Names:      names,
		WindowSize: windowSize,
		RateLimit:  10000, // keep tests fast
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Playlists And Syncs On First Run", func(t *testing.T) {
		svc := newFakeLibrary("a", "b", "c", "d", "e")
		st := newFakeStore()
		s := newTestSyncer(svc, st, []string{"Recently Added", "Older Recently Added"}, 3)

		result, err := s.Run(ctx, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Status != "success" {
			t.Errorf("status = %q, want success", result.Status)
		}
		if result.Message != "SUCCESS: all recently added playlists synced" {
			t.Errorf("unexpected message %q", result.Message)
		}
		if svc.createCalls != 2 {
			t.Errorf("created %d playlists, want 2", svc.createCalls)
		}
		if got := svc.tracks("pl1"); !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("first playlist = %v, want [a b c]", got)
		}
		if got := svc.tracks("pl2"); !slices.Equal(got, []string{"d", "e"}) {
			t.Errorf("second playlist = %v, want [d e]", got)
		}
	})

	t.Run("Is Idempotent", func(t *testing.T) {
		svc := newFakeLibrary("a", "b", "c", "d")
		st := newFakeStore()
		s := newTestSyncer(svc, st, []string{"Recently Added"}, 4)

		if _, err := s.Run(ctx, nil); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		before := svc.mutations()

		result, err := s.Run(ctx, nil)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if svc.mutations() != before {
			t.Errorf("second run issued %d mutations, want 0", svc.mutations()-before)
		}
		if !result.Results[0].Converged {
			t.Error("second run result not converged")
		}
	})

	t.Run("Records Partial Results On Failure", func(t *testing.T) {
		svc := newFakeLibrary("a", "b", "c", "d")
		st := newFakeStore()
		s := newTestSyncer(svc, st, []string{"One", "Two"}, 2)

		// first run to create playlists and converge
		if _, err := s.Run(ctx, nil); err != nil {
			t.Fatalf("setup Run() error = %v", err)
		}

		// force the second segment out of order so reorder runs, then fail moves
		svc.mu.Lock()
		svc.playlists["pl2"] = []string{"d", "c"}
		svc.moveErr = fmt.Errorf("boom")
		svc.mu.Unlock()

		result, err := s.Run(ctx, nil)
		if err == nil {
			t.Fatal("Run() error = nil, want failure")
		}
		if result.Status != "error" {
			t.Errorf("status = %q, want error", result.Status)
		}
		if len(result.Results) != 1 {
			t.Fatalf("got %d partial results, want 1", len(result.Results))
		}
		if result.Results[0].SegmentName != "One" {
			t.Errorf("partial result for %q, want One", result.Results[0].SegmentName)
		}
	})

	t.Run("Reports Progress Without Blocking", func(t *testing.T) {
		svc := newFakeLibrary("a", "b")
		st := newFakeStore()
		s := newTestSyncer(svc, st, []string{"Recently Added"}, 2)

		// unbuffered channel nobody reads; Run must not deadlock
		progress := make(chan ProgressUpdate)
		if _, err := s.Run(ctx, progress); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	})

	t.Run("Fails Without Service", func(t *testing.T) {
		s := NewSyncer(SyncerOpts{Store: newFakeStore(), Names: []string{"A"}})
		if _, err := s.Run(ctx, nil); err == nil {
			t.Fatal("Run() error = nil, want service unavailable")
		}
	})
}
