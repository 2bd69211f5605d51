// package store implements the opaque key-value JSON store used for
// credentials and segment persistence.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/recents/internal/shared"
)

// Store is a key-value JSON store with create-or-overwrite writes.
//
// Get returns found=false when the key is absent; absence is expected
// control flow, not an error.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, value json.RawMessage) error
}

// New constructs the store backend selected by the configuration.
//
// Supported backends: "sqlite" (local), "secretsmanager" and
// "parameterstore" (AWS).
func New(ctx context.Context, cfg shared.StoreConfig, logger *log.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	case "secretsmanager":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewSecretsManagerStore(awsCfg, logger), nil
	case "parameterstore":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewParameterStoreStore(awsCfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
