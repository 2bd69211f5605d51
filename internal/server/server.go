package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/recents/internal/shared"
)

// CallbackServer is a short-lived HTTP server that serves a single OAuth
// callback route and then shuts down.
type CallbackServer struct {
	srv *http.Server
}

// NewCallbackServer builds a server for the configured host and port with
// the handler registered at /callback.
func NewCallbackServer(cfg shared.ServerConfig, handler *OAuthHandler) *CallbackServer {
	mux := http.NewServeMux()
	mux.Handle("/callback", handler)

	return &CallbackServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the server in a goroutine and returns a channel that receives
// the listener error, if any. http.ErrServerClosed is filtered out.
func (c *CallbackServer) Start() <-chan error {
	errChan := make(chan error, 1)
	go func() {
		if err := c.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	return errChan
}

// Shutdown stops the server gracefully.
func (c *CallbackServer) Shutdown(ctx context.Context) error {
	return c.srv.Shutdown(ctx)
}
