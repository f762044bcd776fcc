// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package writer

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/webhook"
)

func TestNewWriterHandler(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	testHandler := NewHandler(buffer)

	response, err := testHandler.Handle(t.Context(), webhook.Delivery{
		Receiver: "azurealert",
		Actions:  []string{"Activated"},
		Payload: map[string]any{
			"context": map[string]any{"name": "Activated"},
			"value":   json.Number("1.50"),
		},
		ReceivedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, response.IsZero())

	_, err = testHandler.Handle(t.Context(), webhook.Delivery{
		Receiver:   "azureeventgrid",
		ID:         "topic1",
		Actions:    []string{"Microsoft.Storage.BlobCreated", "Microsoft.Storage.BlobDeleted"},
		Payload:    []any{"a", "b"},
		ReceivedAt: time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC),
	})
	require.NoError(t, err)

	expectedOutput := `Received webhook:
	Receiver: azurealert
	Actions: Activated
	Received At: 2024-06-01T12:00:00Z
	Payload: {
		"context": {
			"name": "Activated"
		},
		"value": 1.50
	}

Received webhook:
	Receiver: azureeventgrid
	Instance: topic1
	Actions: Microsoft.Storage.BlobCreated, Microsoft.Storage.BlobDeleted
	Received At: 2024-06-01T12:00:01Z
	Payload: [
		"a",
		"b"
	]

`

	assert.Equal(t, expectedOutput, buffer.String())
}
