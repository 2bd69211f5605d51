package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/recents/internal/shared"
)

const parameterNotFound = "ParameterNotFound"

// SSMAPI captures the Parameter Store operations the store uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// ParameterStoreStore implements [Store] on AWS SSM Parameter Store,
// storing values as SecureString parameters.
type ParameterStoreStore struct {
	api    SSMAPI
	logger *log.Logger
}

// NewParameterStoreStore creates a Parameter Store backed store from an AWS config.
func NewParameterStoreStore(cfg aws.Config, logger *log.Logger) *ParameterStoreStore {
	return &ParameterStoreStore{
		api:    ssm.NewFromConfig(cfg),
		logger: logger,
	}
}

// Get retrieves a decrypted parameter; an absent parameter reports found=false.
func (s *ParameterStoreStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	output, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		switch apiErrorCode(err) {
		case parameterNotFound:
			return nil, false, nil
		case accessDeniedException:
			return nil, false, fmt.Errorf("%w: parameter %s", shared.ErrAccessDenied, key)
		}
		return nil, false, fmt.Errorf("failed to get parameter %s: %w", key, err)
	}

	if output.Parameter == nil || output.Parameter.Value == nil {
		return nil, false, fmt.Errorf("parameter %s has no value", key)
	}

	if s.logger != nil {
		s.logger.Debug("retrieved parameter", "key", key)
	}
	return json.RawMessage(*output.Parameter.Value), true, nil
}

// Put writes a SecureString parameter with overwrite semantics.
func (s *ParameterStoreStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(key),
		Value:     aws.String(string(value)),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Debug("saved parameter", "key", key)
	}
	return nil
}
