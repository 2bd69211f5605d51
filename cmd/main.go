package main

import (
	"context"
	"os"

	"github.com/desertthunder/recents/internal/services"
	"github.com/desertthunder/recents/internal/shared"
	"github.com/desertthunder/recents/internal/store"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx := context.Background()
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var backingStore store.Store
	if st, err := store.New(ctx, config.Store, logger); err == nil {
		backingStore = st
	} else {
		logger.Warn("store unavailable", "backend", config.Store.Backend, "error", err)
	}

	credentials := config.Credentials.Spotify.Map()
	if credentials["client_id"] == "" && backingStore != nil {
		if stored, found, err := store.LoadCredentials(ctx, backingStore, config.Store.OAuthKey); err == nil && found {
			credentials = stored
		}
	}

	var spotifyService services.OAuthService
	if svc, err := services.NewSpotifyService(credentials); err == nil {
		spotifyService = svc
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Spotify: spotifyService,
		Store:   backingStore,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "recents",
		Usage:    "Keep recently-added Spotify playlists synced with your saved tracks",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
