package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/recents/internal/server"
	"github.com/desertthunder/recents/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify and cache the token",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a cached token exists and is usable",
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin runs the OAuth2 authorization code flow and persists the
// resulting token in the configured store.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}
	if r.tokens == nil {
		return fmt.Errorf("%w: no token store configured", shared.ErrInvalidConfig)
	}

	token, err := r.doOAuth(ctx, "authorization")
	if err != nil {
		return err
	}

	if err := r.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to the %s store\n\n", r.config.Store.Backend)
	r.writePlain("You can now use: recents sync\n")

	return nil
}

// AuthStatus reports on the cached token without contacting Spotify.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.tokens == nil {
		return fmt.Errorf("%w: no token store configured", shared.ErrInvalidConfig)
	}

	token, found, err := r.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cached token: %w", err)
	}
	if !found {
		r.writePlain("✗ Not authenticated. Run: recents auth login\n")
		return nil
	}

	r.writePlain("✓ Token cached in the %s store\n", r.config.Store.Backend)
	if token.RefreshToken != "" {
		r.writePlain("✓ Refresh token present\n")
	}
	if !token.Expiry.IsZero() {
		if token.Valid() {
			r.writePlain("✓ Access token valid until %s\n", token.Expiry.Format(time.RFC3339))
		} else {
			r.writePlain("⚠ Access token expired at %s (will refresh on next sync)\n", token.Expiry.Format(time.RFC3339))
		}
	}
	return nil
}

// doOAuth runs the localhost callback flow: starts the callback server,
// opens the browser, and waits up to two minutes for the authorization to
// complete.
func (r *Runner) doOAuth(ctx context.Context, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.spotify.GetAuthURL(state)
	handler := server.NewOAuthHandler(r.spotify.GetOAuthConfig(), state)
	callbackServer := server.NewCallbackServer(r.config.Server, handler)

	r.logger.Infof("starting OAuth server for %s at %s:%d", prefix, r.config.Server.Host, r.config.Server.Port)
	serverErrors := callbackServer.Start()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := callbackServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
