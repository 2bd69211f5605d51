// Package services defines the [Library] interface for music streaming
// providers and implements it for Spotify.
//
// # Library Interface
//
// [Library] is the full capability surface the sync engine consumes:
// paginated reads of the recently-saved feed and playlist contents, the three
// playlist write primitives (add-at-position, remove-all-occurrences,
// move-range), and the user/create-playlist calls used during first-run
// playlist provisioning.
//
// The write primitives are deliberately thin: each maps to a single remote
// call capped at [MaxPageLimit] ids. Batching and ordering policy live in the
// caller, never here.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 with automatic token refresh. A refresh
// callback set via [SpotifyService.SetTokenRefreshCallback] fires whenever
// the token source produces a new access token, letting the caller write the
// refreshed token through to persistent storage.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : remote returned 401, reauthorization needed
//   - [shared.ErrAPIRequest] : other non-2xx HTTP responses
//   - [shared.ErrTrackFetch] : paginated read returned no items container
package services
