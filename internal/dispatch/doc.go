// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package dispatch routes authenticated webhook deliveries to the handlers registered for them.
//
// Handlers are registered at startup for a receiver name, or "*" for every receiver, and an
// optional list of actions. Once the Registry is sealed it is read-only and can be shared by
// concurrent requests.
package dispatch
