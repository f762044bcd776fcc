// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package gcppubsub implements a handler publishing deliveries to a Google Cloud Pub/Sub topic.
package gcppubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrPubSub wraps every error emitted by the Pub/Sub handler.
	ErrPubSub = errors.New("pubsub handler")
	// ErrMissingOption reports a missing mandatory option.
	ErrMissingOption = errors.New("missing option")
)

const (
	loggerName = "webhookd:handler:pubsub"

	ReceiverAttribute = "receiver"
	IDAttribute       = "id"
	ActionsAttribute  = "actions"
	DeliveryAttribute = "deliveryId"
)

// Config holds the options of a Pub/Sub handler.
type Config struct {
	ProjectID string `yaml:"projectId" env:"GOOGLE_CLOUD_PUBSUB_PROJECT"`
	Topic     string `yaml:"topic" env:"GOOGLE_CLOUD_PUBSUB_TOPIC"`
	// Endpoint points the client to an emulator; the connection is made without TLS and
	// without credentials.
	Endpoint string `yaml:"endpoint" env:"GOOGLE_CLOUD_PUBSUB_ENDPOINT"`
	// OrderByInstance sets the ordering key to the receiver instance.
	OrderByInstance bool `yaml:"orderByInstance"`
}

func (c Config) validate() error {
	missing := make([]string, 0)
	if c.ProjectID == "" {
		missing = append(missing, "projectId")
	}
	if c.Topic == "" {
		missing = append(missing, "topic")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: %s", ErrPubSub, ErrMissingOption, strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) clientOptions() []option.ClientOption {
	if c.Endpoint == "" {
		return nil
	}

	return []option.ClientOption{
		option.WithEndpoint(c.Endpoint),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		option.WithTelemetryDisabled(),
	}
}

var _ dispatch.Handler = &Handler{}

// Handler publishes every delivery as a single message.
type Handler struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher

	orderByInstance bool
}

// NewHandler creates the Pub/Sub client described by config.
func NewHandler(ctx context.Context, config Config, opts ...option.ClientOption) (*Handler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	client, err := pubsub.NewClient(ctx, config.ProjectID, append(config.clientOptions(), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPubSub, err)
	}

	publisher := client.Publisher(config.Topic)
	publisher.EnableMessageOrdering = config.OrderByInstance

	return &Handler{
		client:          client,
		publisher:       publisher,
		orderByInstance: config.OrderByInstance,
	}, nil
}

// Handle implements dispatch.Handler and waits for the message to be acknowledged by the server.
func (h *Handler) Handle(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	envelope := dispatch.NewEnvelope(delivery)
	data, err := json.Marshal(envelope)
	if err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrPubSub, err)
	}

	message := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			ReceiverAttribute: delivery.Receiver,
			ActionsAttribute:  strings.Join(delivery.Actions, ","),
			DeliveryAttribute: envelope.DeliveryID,
		},
	}
	if delivery.ID != "" {
		message.Attributes[IDAttribute] = delivery.ID
	}
	if h.orderByInstance {
		message.OrderingKey = webhook.Identity{Name: delivery.Receiver, ID: delivery.ID}.String()
	}

	serverID, err := h.publisher.Publish(ctx, message).Get(ctx)
	if err != nil {
		if h.orderByInstance {
			h.publisher.ResumePublish(message.OrderingKey)
		}
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrPubSub, err)
	}

	logger.FromContext(ctx).WithName(loggerName).Trace("delivery published", "deliveryId", envelope.DeliveryID, "messageId", serverID)
	return webhook.Response{}, nil
}

// Close flushes the pending messages and releases the client.
func (h *Handler) Close() error {
	h.publisher.Stop()
	return h.client.Close()
}
