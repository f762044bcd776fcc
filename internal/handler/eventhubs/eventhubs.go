// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package eventhubs implements a handler sending deliveries to an Azure Event Hub.
package eventhubs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"

	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrEventHubs wraps every error emitted by the Event Hubs handler.
	ErrEventHubs = errors.New("eventhubs handler")
	// ErrMissingOption reports missing mandatory options.
	ErrMissingOption = errors.New("missing option")
	// ErrInvalidOption reports malformed option values.
	ErrInvalidOption = errors.New("invalid option")
)

const (
	loggerName = "webhookd:handler:eventhubs"

	jsonContentType = "application/json"
)

// Config holds the options of an Event Hubs handler.
type Config struct {
	ConnectionString string `yaml:"connectionString" env:"AZURE_EVENT_HUB_CONNECTION_STRING"`
	Namespace        string `yaml:"namespace" env:"AZURE_EVENT_HUB_NAMESPACE"`
	EventHub         string `yaml:"eventHub" env:"AZURE_EVENT_HUB_NAME"`
	// PartitionByInstance routes the deliveries of the same receiver instance to the same partition.
	PartitionByInstance bool `yaml:"partitionByInstance"`
}

func (c Config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.Namespace) == 0:
		return fmt.Errorf("%w: %w: %s", ErrEventHubs, ErrInvalidOption, "one of connectionString or namespace must be present")
	case len(c.ConnectionString) > 0 && len(c.Namespace) > 0:
		return fmt.Errorf("%w: %w: %s", ErrEventHubs, ErrInvalidOption, "connectionString and namespace cannot be used together")
	case len(c.Namespace) > 0 && len(c.EventHub) == 0:
		return fmt.Errorf("%w: %w: %s", ErrEventHubs, ErrMissingOption, "eventHub")
	}

	return nil
}

func (c Config) fullyQualifiedNamespace() string {
	if strings.Contains(c.Namespace, ".servicebus.windows.net") {
		return c.Namespace
	}

	return c.Namespace + ".servicebus.windows.net"
}

func (c Config) newProducerClient() (*azeventhubs.ProducerClient, error) {
	if c.ConnectionString != "" {
		return azeventhubs.NewProducerClientFromConnectionString(c.ConnectionString, c.EventHub, producerOptions())
	}

	azureCredentials, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: azcore.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: info.AppName},
		},
	})
	if err != nil {
		return nil, err
	}

	return azeventhubs.NewProducerClient(c.fullyQualifiedNamespace(), c.EventHub, azureCredentials, producerOptions())
}

func producerOptions() *azeventhubs.ProducerClientOptions {
	return &azeventhubs.ProducerClientOptions{ApplicationID: info.AppName}
}

var _ dispatch.Handler = &Handler{}

// Handler sends every delivery as a batch made of a single event.
type Handler struct {
	client *azeventhubs.ProducerClient

	partitionByInstance bool
}

// NewHandler creates the Event Hubs producer described by config.
func NewHandler(config Config) (*Handler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	client, err := config.newProducerClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEventHubs, err)
	}

	return &Handler{
		client:              client,
		partitionByInstance: config.PartitionByInstance,
	}, nil
}

// Handle implements dispatch.Handler.
func (h *Handler) Handle(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	event, err := eventData(delivery)
	if err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrEventHubs, err)
	}

	var batchOptions *azeventhubs.EventDataBatchOptions
	if h.partitionByInstance {
		partitionKey := webhook.Identity{Name: delivery.Receiver, ID: delivery.ID}.String()
		batchOptions = &azeventhubs.EventDataBatchOptions{PartitionKey: &partitionKey}
	}

	batch, err := h.client.NewEventDataBatch(ctx, batchOptions)
	if err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrEventHubs, err)
	}

	if err := batch.AddEventData(event, nil); err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrEventHubs, err)
	}

	if err := h.client.SendEventDataBatch(ctx, batch, nil); err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrEventHubs, err)
	}

	logger.FromContext(ctx).WithName(loggerName).Trace("delivery sent", "messageId", *event.MessageID)
	return webhook.Response{}, nil
}

// Close releases the producer connection.
func (h *Handler) Close(ctx context.Context) error {
	return h.client.Close(ctx)
}

// eventData converts delivery into the event sent to the hub.
func eventData(delivery webhook.Delivery) (*azeventhubs.EventData, error) {
	envelope := dispatch.NewEnvelope(delivery)
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	messageID := envelope.DeliveryID
	contentType := jsonContentType
	return &azeventhubs.EventData{
		Body:        body,
		ContentType: &contentType,
		MessageID:   &messageID,
		Properties: map[string]any{
			"receiver": delivery.Receiver,
			"id":       delivery.ID,
			"actions":  strings.Join(delivery.Actions, ","),
		},
	}, nil
}
