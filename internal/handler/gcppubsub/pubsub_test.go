// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package gcppubsub

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	testProject = "webhookd-test"
	testTopic   = "projects/webhookd-test/topics/deliveries"
)

func newFakePubSub(t *testing.T) *pstest.Server {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	client, err := pubsub.NewClient(t.Context(), testProject,
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		option.WithTelemetryDisabled(),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.TopicAdminClient.CreateTopic(t.Context(), &pubsubpb.Topic{Name: testTopic})
	require.NoError(t, err)
	return srv
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		config      Config
		expectedErr string
	}{
		"missing everything": {
			expectedErr: "projectId, topic",
		},
		"missing topic": {
			config:      Config{ProjectID: testProject},
			expectedErr: "topic",
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewHandler(t.Context(), test.config)
			require.ErrorIs(t, err, ErrPubSub)
			require.ErrorIs(t, err, ErrMissingOption)
			assert.ErrorContains(t, err, test.expectedErr)
		})
	}
}

func TestPublishDelivery(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		orderByInstance     bool
		expectedOrderingKey string
	}{
		"unordered": {},
		"ordered by instance": {
			orderByInstance:     true,
			expectedOrderingKey: "azureeventgrid/topic1",
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newFakePubSub(t)
			handler, err := NewHandler(t.Context(), Config{
				ProjectID:       testProject,
				Topic:           testTopic,
				Endpoint:        srv.Addr,
				OrderByInstance: test.orderByInstance,
			})
			require.NoError(t, err)
			defer handler.Close()

			response, err := handler.Handle(t.Context(), webhook.Delivery{
				Receiver:   "azureeventgrid",
				ID:         "topic1",
				Actions:    []string{"Microsoft.Storage.BlobCreated", "Microsoft.Storage.BlobDeleted"},
				Payload:    []any{map[string]any{"eventType": "Microsoft.Storage.BlobCreated"}},
				ReceivedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			assert.True(t, response.IsZero())

			messages := srv.Messages()
			require.Len(t, messages, 1)
			message := messages[0]

			assert.Equal(t, "azureeventgrid", message.Attributes[ReceiverAttribute])
			assert.Equal(t, "topic1", message.Attributes[IDAttribute])
			assert.Equal(t, "Microsoft.Storage.BlobCreated,Microsoft.Storage.BlobDeleted", message.Attributes[ActionsAttribute])
			assert.NotEmpty(t, message.Attributes[DeliveryAttribute])
			assert.Equal(t, test.expectedOrderingKey, message.OrderingKey)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(message.Data, &envelope))
			assert.Equal(t, message.Attributes[DeliveryAttribute], envelope["deliveryId"])
			assert.Equal(t, "azureeventgrid/topic1", envelope["instance"])
		})
	}
}

func TestPublishOnMissingTopic(t *testing.T) {
	t.Parallel()

	srv := newFakePubSub(t)
	handler, err := NewHandler(t.Context(), Config{
		ProjectID: testProject,
		Topic:     "projects/webhookd-test/topics/missing",
		Endpoint:  srv.Addr,
	})
	require.NoError(t, err)
	defer handler.Close()

	_, err = handler.Handle(t.Context(), webhook.Delivery{Receiver: "kudu", Actions: []string{"success"}})
	require.ErrorIs(t, err, ErrPubSub)
	assert.Equal(t, 500, webhook.ErrorResponse(err).StatusCode)
}
