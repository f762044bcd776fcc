// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package eventgrid receives Azure Event Grid deliveries.
//
// An Event Grid request carries a batch of events, so a single request can produce more than one
// action. When a new subscription is created Event Grid sends a
// Microsoft.EventGrid.SubscriptionValidationEvent and expects the validation code back in the
// response body: ValidationHandler takes care of that handshake.
package eventgrid
