// Spotify API implementation of [Library]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/recents/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// spotifyTrack is the wire form of a track object.
type spotifyTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// spotifyPageItem wraps a track in a listing context (saved feed or playlist).
type spotifyPageItem struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

// spotifyPage is a paginated listing response.
//
// Items is a pointer so a response without an items container is
// distinguishable from an empty page.
type spotifyPage struct {
	Items  *[]spotifyPageItem `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
	Next   *string            `json:"next"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// SpotifyService implements the [Library] interface for Spotify API interactions.
// Uses [oauth2] for authentication and token refresh.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-library-read",
			"playlist-read-private",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for callback handling.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers a callback invoked whenever the underlying
// token source produces a new token, so callers can persist refreshed tokens.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate installs the given token and builds an authenticated HTTP
// client that refreshes expired tokens automatically.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.onTokenRefresh,
	}
	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the access token changes (first fetch or refresh).
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}

	return token, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: spotify returned status 401", shared.ErrTokenExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// page converts a wire page to a [TrackPage], failing when the response has
// no items container.
func (s *SpotifyService) page(wire *spotifyPage, endpoint string) (*TrackPage, error) {
	if wire.Items == nil {
		return nil, fmt.Errorf("%w: %s response missing items", shared.ErrTrackFetch, endpoint)
	}

	page := &TrackPage{
		Items:  make([]PageTrack, 0, len(*wire.Items)),
		Total:  wire.Total,
		Limit:  wire.Limit,
		Offset: wire.Offset,
		Next:   wire.Next,
	}
	for _, item := range *wire.Items {
		page.Items = append(page.Items, PageTrack{
			AddedAt: item.AddedAt,
			Track:   Track{ID: item.Track.ID, Name: item.Track.Name, URI: item.Track.URI},
		})
	}
	return page, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// SavedTracks retrieves one page of the user's saved tracks, most recently saved first.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*TrackPage, error) {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", clampLimit(limit), offset)

	var wire spotifyPage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &wire); err != nil {
		return nil, err
	}

	return s.page(&wire, "/me/tracks")
}

// PlaylistTracks retrieves one page of a playlist's contents in playlist order.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*TrackPage, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, clampLimit(limit), offset)

	var wire spotifyPage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &wire); err != nil {
		return nil, err
	}

	return s.page(&wire, "/playlists/"+playlistID+"/tracks")
}

func trackURIs(trackIDs []string) []string {
	uris := make([]string, 0, len(trackIDs))
	for _, id := range trackIDs {
		uris = append(uris, "spotify:track:"+id)
	}
	return uris
}

// AddTracks inserts the given tracks into the playlist at the given position.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track ids provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > MaxPageLimit {
		return fmt.Errorf("%w: maximum %d track ids per call", shared.ErrInvalidArgument, MaxPageLimit)
	}

	body := struct {
		URIs     []string `json:"uris"`
		Position int      `json:"position"`
	}{URIs: trackURIs(trackIDs), Position: position}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemoveTracks removes every occurrence of each given track from the playlist.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track ids provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > MaxPageLimit {
		return fmt.Errorf("%w: maximum %d track ids per call", shared.ErrInvalidArgument, MaxPageLimit)
	}

	type uriObject struct {
		URI string `json:"uri"`
	}
	body := struct {
		Tracks []uriObject `json:"tracks"`
	}{}
	for _, uri := range trackURIs(trackIDs) {
		body.Tracks = append(body.Tracks, uriObject{URI: uri})
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodDelete, endpoint, body, nil)
}

// MoveTrack moves the track at rangeStart to sit before insertBefore.
func (s *SpotifyService) MoveTrack(ctx context.Context, playlistID string, rangeStart, insertBefore int) error {
	body := struct {
		RangeStart   int `json:"range_start"`
		InsertBefore int `json:"insert_before"`
		RangeLength  int `json:"range_length"`
	}{RangeStart: rangeStart, InsertBefore: insertBefore, RangeLength: 1}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*User, error) {
	var wire spotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &wire); err != nil {
		return nil, err
	}
	return &User{ID: wire.ID, DisplayName: wire.DisplayName}, nil
}

// CreatePlaylist creates a new playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name string, public bool) (*Playlist, error) {
	body := struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}{Name: name, Public: public}

	endpoint := fmt.Sprintf("/users/%s/playlists", userID)

	var wire spotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &wire); err != nil {
		return nil, err
	}

	return &Playlist{
		ID:          wire.ID,
		Name:        wire.Name,
		Description: wire.Description,
		TrackCount:  wire.Tracks.Total,
		Public:      wire.Public,
	}, nil
}
