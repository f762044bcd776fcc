// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrSecretStore is the sentinel error for all the secret store errors.
	ErrSecretStore = errors.New("secret store")
)

const (
	loggerName = "webhookd:secrets"
)

var _ webhook.SecretStore = Chain{}

// Chain queries its stores in order and returns the first non empty set of secrets.
type Chain []webhook.SecretStore

// Secrets implements webhook.SecretStore.
func (c Chain) Secrets(ctx context.Context, identity webhook.Identity) ([]string, error) {
	for _, store := range c {
		secrets, err := store.Secrets(ctx, identity)
		if err != nil {
			return nil, err
		}

		if len(secrets) > 0 {
			return secrets, nil
		}
	}

	return nil, nil
}

// config holds the environment driven selection of secret stores.
type config struct {
	Prefix string `env:"WEBHOOK_SECRET_PREFIX" envDefault:"WEBHOOK_RECEIVER_SECRET"`
	File   string `env:"WEBHOOK_SECRETS_FILE"`

	BlobConnectionString string `env:"WEBHOOK_SECRETS_BLOB_CONNECTION_STRING"`
	BlobAccount          string `env:"WEBHOOK_SECRETS_BLOB_ACCOUNT_NAME"`
	BlobContainer        string `env:"WEBHOOK_SECRETS_BLOB_CONTAINER_NAME"`
	BlobName             string `env:"WEBHOOK_SECRETS_BLOB_NAME" envDefault:"secrets.yaml"`
}

func (c config) validate() error {
	switch {
	case len(strings.TrimSpace(c.Prefix)) == 0:
		return fmt.Errorf("%w: WEBHOOK_SECRET_PREFIX cannot be empty", ErrSecretStore)
	case len(c.BlobConnectionString) > 0 && len(c.BlobAccount) > 0:
		return fmt.Errorf("%w: only one of WEBHOOK_SECRETS_BLOB_CONNECTION_STRING or WEBHOOK_SECRETS_BLOB_ACCOUNT_NAME can be set", ErrSecretStore)
	case c.useBlob() && len(c.BlobContainer) == 0:
		return fmt.Errorf("%w: missing environment variable: WEBHOOK_SECRETS_BLOB_CONTAINER_NAME", ErrSecretStore)
	}

	return nil
}

func (c config) useBlob() bool {
	return len(c.BlobConnectionString) > 0 || len(c.BlobAccount) > 0
}

// NewStoreFromEnv returns the chain of stores configured by the environment: the environment
// store is always present, followed by the file store and the blob store when configured.
func NewStoreFromEnv() (Chain, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	chain := Chain{NewEnvStore(cfg.Prefix)}
	if len(cfg.File) > 0 {
		chain = append(chain, NewFileStore(cfg.File))
	}

	if cfg.useBlob() {
		store, err := newBlobStoreFromConfig(cfg)
		if err != nil {
			return nil, handleError(err)
		}
		chain = append(chain, store)
	}

	return chain, nil
}

// validSecrets drops the values that cannot be used as secrets.
func validSecrets(ctx context.Context, source string, identity webhook.Identity, values []string) []string {
	secrets := make([]string, 0, len(values))
	for idx, value := range values {
		value = strings.TrimSpace(value)
		if !webhook.ValidSecret(value) {
			logger.FromContext(ctx).WithName(loggerName).Warn("ignoring secret with invalid length",
				"source", source,
				"receiver", identity.String(),
				"index", idx,
				"length", len(value),
				"minLength", webhook.MinSecretLength,
				"maxLength", webhook.MaxSecretLength,
			)
			continue
		}
		secrets = append(secrets, value)
	}

	return secrets
}

// handleError always wraps the given error with ErrSecretStore.
// It also unwraps some errors to cleanup the error message and removing unnecessary layers.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return fmt.Errorf("%w: %w", ErrSecretStore, err)
}
