// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mia-platform/webhookd/internal/webhook"
)

// Handler consumes a delivery. A non zero Response is a candidate answer for the sender.
type Handler interface {
	Handle(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	return f(ctx, delivery)
}

// Envelope is the wire representation of a delivery shared by the handlers that ship it
// outside of the process.
type Envelope struct {
	DeliveryID string          `json:"deliveryId"`
	Receiver   string          `json:"receiver"`
	ID         string          `json:"id,omitempty"`
	Actions    []string        `json:"actions"`
	Payload    webhook.Payload `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// NewEnvelope wraps delivery with a new random delivery id.
func NewEnvelope(delivery webhook.Delivery) Envelope {
	return Envelope{
		DeliveryID: uuid.NewString(),
		Receiver:   delivery.Receiver,
		ID:         delivery.ID,
		Actions:    delivery.Actions,
		Payload:    delivery.Payload,
		ReceivedAt: delivery.ReceivedAt,
	}
}

// internalEnvelope breaks the recursion when customizing JSON marshaling.
type internalEnvelope Envelope

// MarshalJSON adds the instance label used by consumers to group deliveries.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		internalEnvelope

		Instance string `json:"instance"`
	}{
		internalEnvelope: internalEnvelope(e),
		Instance:         webhook.Identity{Name: e.Receiver, ID: e.ID}.String(),
	})
}
