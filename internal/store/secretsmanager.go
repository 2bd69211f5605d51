package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/recents/internal/shared"
)

// AWS error code constants
const (
	resourceNotFoundException = "ResourceNotFoundException"
	accessDeniedException     = "AccessDeniedException"
)

// ManagerAPI captures the Secrets Manager operations the store uses,
// so tests can substitute a fake for the SDK client.
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// SecretsManagerStore implements [Store] on AWS Secrets Manager.
type SecretsManagerStore struct {
	api    ManagerAPI
	logger *log.Logger
}

// NewSecretsManagerStore creates a Secrets Manager backed store from an AWS config.
func NewSecretsManagerStore(cfg aws.Config, logger *log.Logger) *SecretsManagerStore {
	return &SecretsManagerStore{
		api:    secretsmanager.NewFromConfig(cfg),
		logger: logger,
	}
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Get retrieves a secret value; an absent secret reports found=false.
func (s *SecretsManagerStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	output, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		switch apiErrorCode(err) {
		case resourceNotFoundException:
			return nil, false, nil
		case accessDeniedException:
			return nil, false, fmt.Errorf("%w: secret %s", shared.ErrAccessDenied, key)
		}
		return nil, false, fmt.Errorf("failed to get secret %s: %w", key, err)
	}

	var raw []byte
	switch {
	case output.SecretString != nil:
		raw = []byte(*output.SecretString)
	case output.SecretBinary != nil:
		raw = output.SecretBinary
	default:
		return nil, false, fmt.Errorf("secret %s has no value", key)
	}

	if s.logger != nil {
		s.logger.Debug("retrieved secret", "key", key)
	}
	return json.RawMessage(raw), true, nil
}

// Put writes a secret value, creating the secret when it does not exist yet.
func (s *SecretsManagerStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(key),
		SecretString: aws.String(string(value)),
	})
	if err == nil {
		if s.logger != nil {
			s.logger.Debug("updated secret", "key", key)
		}
		return nil
	}

	if apiErrorCode(err) != resourceNotFoundException {
		return fmt.Errorf("failed to put secret %s: %w", key, err)
	}

	if _, err := s.api.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(key),
		SecretString: aws.String(string(value)),
	}); err != nil {
		return fmt.Errorf("failed to create secret %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Debug("created secret", "key", key)
	}
	return nil
}
