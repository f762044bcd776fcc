// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	blobSource = "blob"
)

var _ webhook.SecretStore = &BlobStore{}

// blobDownloader is the subset of *azblob.Client used by BlobStore.
type blobDownloader interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// BlobStore reads secrets from a YAML blob saved in an Azure Storage account. The blob is
// downloaded again on every lookup.
type BlobStore struct {
	Container string
	Blob      string

	client blobDownloader
}

// NewBlobStore returns a BlobStore reading blob from container using client.
func NewBlobStore(client *azblob.Client, container, blob string) *BlobStore {
	return &BlobStore{
		Container: container,
		Blob:      blob,
		client:    client,
	}
}

func newBlobStoreFromConfig(cfg config) (*BlobStore, error) {
	if cfg.BlobConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.BlobConnectionString, &azblob.ClientOptions{ClientOptions: azureClientOptions()})
		if err != nil {
			return nil, err
		}
		return NewBlobStore(client, cfg.BlobContainer, cfg.BlobName), nil
	}

	credentials, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{ClientOptions: azureClientOptions()})
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClient(blobServiceURL(cfg.BlobAccount), credentials, &azblob.ClientOptions{ClientOptions: azureClientOptions()})
	if err != nil {
		return nil, err
	}
	return NewBlobStore(client, cfg.BlobContainer, cfg.BlobName), nil
}

// azureClientOptions tags the requests sent to Azure with the application name.
func azureClientOptions() azcore.ClientOptions {
	return azcore.ClientOptions{
		Telemetry: policy.TelemetryOptions{ApplicationID: info.AppName},
	}
}

func blobServiceURL(account string) string {
	if strings.Contains(account, ".blob.core.windows.net") {
		return account
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", account)
}

// Secrets implements webhook.SecretStore.
func (s *BlobStore) Secrets(ctx context.Context, identity webhook.Identity) ([]string, error) {
	response, err := s.client.DownloadStream(ctx, s.Container, s.Blob, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading %s/%s: %w", ErrSecretStore, s.Container, s.Blob, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s/%s: %w", ErrSecretStore, s.Container, s.Blob, err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s/%s: %w", ErrSecretStore, s.Container, s.Blob, err)
	}

	return validSecrets(ctx, blobSource, identity, doc.secrets(identity)), nil
}
