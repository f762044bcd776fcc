// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	fileSource = "file"
)

var _ webhook.SecretStore = &FileStore{}

// FileStore reads secrets from a YAML file. The file is read again on every lookup.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore reading path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Secrets implements webhook.SecretStore.
func (s *FileStore) Secrets(ctx context.Context, identity webhook.Identity) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecretStore, err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %w", ErrSecretStore, s.Path, err)
	}

	return validSecrets(ctx, fileSource, identity, doc.secrets(identity)), nil
}
