// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/webhook"
)

func writeSecretsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	content := `
azurealert:
  default: ` + secret0 + `
  production:
    - ` + secret1 + `
    - ` + secret2 + `
    - short
kudu:
  "": ` + secret2 + `
  default: ` + secret0 + `
`

	testCases := map[string]struct {
		identity        webhook.Identity
		expectedSecrets []string
	}{
		"default key": {
			identity:        webhook.Identity{Name: "azurealert"},
			expectedSecrets: []string{secret0},
		},
		"empty key wins over default key": {
			identity:        webhook.Identity{Name: "kudu"},
			expectedSecrets: []string{secret2},
		},
		"instance list without invalid values": {
			identity:        webhook.Identity{Name: "azurealert", ID: "production"},
			expectedSecrets: []string{secret1, secret2},
		},
		"unknown instance": {
			identity:        webhook.Identity{Name: "azurealert", ID: "staging"},
			expectedSecrets: []string{},
		},
		"unknown receiver": {
			identity:        webhook.Identity{Name: "azureeventgrid"},
			expectedSecrets: []string{},
		},
	}

	path := writeSecretsFile(t, content)
	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			secrets, err := NewFileStore(path).Secrets(t.Context(), test.identity)
			require.NoError(t, err)
			assert.Equal(t, test.expectedSecrets, secrets)
		})
	}
}

func TestFileStoreReadsOnEveryLookup(t *testing.T) {
	t.Parallel()

	path := writeSecretsFile(t, "kudu:\n  default: "+secret0+"\n")
	store := NewFileStore(path)

	secrets, err := store.Secrets(t.Context(), webhook.Identity{Name: "kudu"})
	require.NoError(t, err)
	assert.Equal(t, []string{secret0}, secrets)

	require.NoError(t, os.WriteFile(path, []byte("kudu:\n  default: "+secret1+"\n"), 0o600))
	secrets, err = store.Secrets(t.Context(), webhook.Identity{Name: "kudu"})
	require.NoError(t, err)
	assert.Equal(t, []string{secret1}, secrets)
}

func TestFileStoreErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		path string
	}{
		"missing file": {
			path: filepath.Join(t.TempDir(), "missing.yaml"),
		},
		"not a document": {
			path: writeSecretsFile(t, "- "+secret0),
		},
		"invalid secret type": {
			path: writeSecretsFile(t, "kudu:\n  default:\n    nested: value\n"),
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewFileStore(test.path).Secrets(t.Context(), webhook.Identity{Name: "kudu"})
			require.ErrorIs(t, err, ErrSecretStore)
		})
	}
}
