package store

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenCache persists OAuth2 tokens in a [Store] so refreshed tokens survive
// across runs.
type TokenCache struct {
	store Store
	key   string
}

// NewTokenCache creates a token cache over the given store and key.
func NewTokenCache(st Store, key string) *TokenCache {
	return &TokenCache{store: st, key: key}
}

// Load reads the persisted token; found=false when no token has been stored yet.
func (c *TokenCache) Load(ctx context.Context) (*oauth2.Token, bool, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil || !found {
		return nil, false, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return &token, true, nil
}

// Save persists the token, overwriting any previous one.
func (c *TokenCache) Save(ctx context.Context, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return c.store.Put(ctx, c.key, raw)
}

// LoadCredentials reads an OAuth client credentials map (client_id,
// client_secret, redirect_uri) from the store; found=false when absent.
func LoadCredentials(ctx context.Context, st Store, key string) (map[string]string, bool, error) {
	raw, found, err := st.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	var creds map[string]string
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored credentials: %w", err)
	}
	return creds, true, nil
}
