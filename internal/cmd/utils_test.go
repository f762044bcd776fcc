// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/receivers"
	"github.com/mia-platform/webhookd/internal/webhook"
	"github.com/mia-platform/webhookd/internal/webhook/fake"
)

// setupTestFileStructure creates a test file structure under the given baseDir.
func setupTestFileStructure(tb testing.TB, baseDir string) {
	tb.Helper()

	if err := os.MkdirAll(filepath.Join(baseDir, "valid", "subdir"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Symlink(filepath.Join(baseDir, "valid", "subdir"), filepath.Join(baseDir, "valid", "link")); err != nil {
		require.NoError(tb, err)
	}

	if err := os.WriteFile(filepath.Join(baseDir, "valid", "invalid.yaml"), []byte("\tinvalid yaml file"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.WriteFile(filepath.Join(baseDir, "valid", "subdir", "file.txt"), []byte("txt file"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Symlink(filepath.Join(baseDir, "valid", "invalid.yaml"), filepath.Join(baseDir, "symlink.file")); err != nil {
		require.NoError(tb, err)
	}

	if err := os.Mkdir(filepath.Join(baseDir, "secret"), os.ModePerm); err != nil {
		require.NoError(tb, err)
	}
	if err := os.Chmod(filepath.Join(baseDir, "secret"), 0o0000); err != nil {
		require.NoError(tb, err)
	}
}

// testStoreGetter returns a store getter serving secret for every default receiver instance.
func testStoreGetter(tb testing.TB, secret string) func() (webhook.SecretStore, error) {
	tb.Helper()

	values := make(map[webhook.Identity][]string)
	for _, name := range receivers.Default().Names() {
		values[webhook.Identity{Name: name}] = []string{secret}
	}

	return func() (webhook.SecretStore, error) {
		return fake.NewSecretStore(tb, values), nil
	}
}
