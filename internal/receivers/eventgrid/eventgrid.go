// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package eventgrid

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/eventgrid/azsystemevents"

	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	Name        = "azureeventgrid"
	Description = "Azure Event Grid subscriptions, one action for each distinct eventType in the batch"

	// SubscriptionValidationEvent is the event type sent by Event Grid when a subscription is created.
	SubscriptionValidationEvent = "Microsoft.EventGrid.SubscriptionValidationEvent"
)

// Extractor returns the action extractor for Event Grid batches. The body can be a single
// event or an array of events.
func Extractor() webhook.ActionExtractor {
	return webhook.ExtractorFunc(extractActions)
}

func extractActions(_ context.Context, _ webhook.Identity, _ webhook.Request, payload webhook.Payload) ([]string, error) {
	events, err := eventsFrom(payload)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(events))
	actions := make([]string, 0, len(events))
	for idx, event := range events {
		eventType, ok := webhook.LookupString(event, "eventType")
		if !ok || eventType == "" {
			return nil, webhook.BadBody("the Event Grid event at index %d must contain an 'eventType' JSON property containing the action name", idx)
		}

		if eventType == SubscriptionValidationEvent {
			if _, err := validationData(event); err != nil {
				return nil, err
			}
		}

		if _, found := seen[eventType]; found {
			continue
		}
		seen[eventType] = struct{}{}
		actions = append(actions, eventType)
	}

	return actions, nil
}

func eventsFrom(payload webhook.Payload) ([]any, error) {
	switch typed := payload.(type) {
	case []any:
		if len(typed) == 0 {
			return nil, webhook.BadBody("the Event Grid request must contain at least one event")
		}
		return typed, nil
	case map[string]any:
		return []any{typed}, nil
	default:
		return nil, webhook.BadBody("the Event Grid request must contain a JSON array of events")
	}
}

// validationData decodes the data of a subscription validation event.
func validationData(event any) (azsystemevents.SubscriptionValidationEventData, error) {
	var data azsystemevents.SubscriptionValidationEventData

	raw, ok := webhook.Lookup(event, "data")
	if !ok {
		return data, webhook.BadBody("the '%s' event must contain a 'data.validationCode' JSON property", SubscriptionValidationEvent)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return data, webhook.WrapError(webhook.KindBadBody, "invalid subscription validation data", err)
	}
	if err := json.Unmarshal(encoded, &data); err != nil {
		return data, webhook.WrapError(webhook.KindBadBody, "invalid subscription validation data", err)
	}

	if data.ValidationCode == nil || *data.ValidationCode == "" {
		return data, webhook.BadBody("the '%s' event must contain a 'data.validationCode' JSON property", SubscriptionValidationEvent)
	}

	return data, nil
}

// ValidationHandler completes the Event Grid subscription handshake by echoing the
// validation code of the first validation event in the delivery.
type ValidationHandler struct{}

// Handle answers deliveries that contain a subscription validation event and ignores the others.
func (ValidationHandler) Handle(_ context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	if delivery.Receiver != Name {
		return webhook.Response{}, nil
	}

	events, err := eventsFrom(delivery.Payload)
	if err != nil {
		return webhook.Response{}, err
	}

	for _, event := range events {
		if eventType, _ := webhook.LookupString(event, "eventType"); eventType != SubscriptionValidationEvent {
			continue
		}

		data, err := validationData(event)
		if err != nil {
			return webhook.Response{}, err
		}

		return webhook.Response{
			StatusCode: http.StatusOK,
			Body: azsystemevents.SubscriptionValidationResponse{
				ValidationResponse: data.ValidationCode,
			},
		}, nil
	}

	return webhook.Response{}, nil
}
