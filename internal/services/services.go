// package services defines interface Library for interacting with remote music APIs
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Library is the capability surface the sync engine consumes from a music
// service: paginated reads of the saved-track feed and playlist contents,
// and the three playlist write primitives.
//
// Mutating operations accept at most [MaxPageLimit] ids per call and perform
// no batching, deduplication, or reordering of their own; batching policy
// belongs to the caller.
type Library interface {
	// SavedTracks reads one page of the user's saved tracks, most recently
	// saved first.
	SavedTracks(ctx context.Context, limit, offset int) (*TrackPage, error)

	// PlaylistTracks reads one page of a playlist's contents in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*TrackPage, error)

	// AddTracks inserts the given tracks at the given position.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error

	// RemoveTracks removes every occurrence of each given track from the playlist.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// MoveTrack moves the track at rangeStart to sit before insertBefore.
	MoveTrack(ctx context.Context, playlistID string, rangeStart, insertBefore int) error

	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context) (*User, error)

	// CreatePlaylist creates a new playlist owned by the given user.
	CreatePlaylist(ctx context.Context, userID, name string, public bool) (*Playlist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends Library for providers using server-side OAuth2 flows.
type OAuthService interface {
	Library

	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the OAuth2 config for callback handling.
	GetOAuthConfig() *oauth2.Config

	// Authenticate installs the given token and builds the authenticated client.
	Authenticate(ctx context.Context, token *oauth2.Token) error

	// SetTokenRefreshCallback registers a callback invoked when the
	// underlying token source refreshes the token.
	SetTokenRefreshCallback(fn func(*oauth2.Token))
}

// MaxPageLimit is the page size cap for reads and the id cap for batched writes.
const MaxPageLimit = 50

// TrackPage is one page of a paginated track listing.
type TrackPage struct {
	Items  []PageTrack
	Total  int
	Limit  int
	Offset int
	Next   *string
}

// TrackIDs returns the track ids of the page in returned order.
func (p *TrackPage) TrackIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.Track.ID)
	}
	return ids
}

// PageTrack is a track within a listing context.
type PageTrack struct {
	AddedAt string
	Track   Track
}

// Track represents a music track.
type Track struct {
	ID   string
	Name string
	URI  string
}

// User represents a service user profile.
type User struct {
	ID          string
	DisplayName string
}

// Playlist represents a playlist.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}
