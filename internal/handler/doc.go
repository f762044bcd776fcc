// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package handler lists the handler types that can be declared in the handlers files. Every
// sub-package implements dispatch.Handler for one kind of sink.
package handler

const (
	// TypeWriter prints deliveries to the process standard output.
	TypeWriter = "writer"
	// TypeForward posts deliveries to an HTTP endpoint.
	TypeForward = "forward"
	// TypePubSub publishes deliveries to a Google Cloud Pub/Sub topic.
	TypePubSub = "pubsub"
	// TypeEventHubs sends deliveries to an Azure Event Hub.
	TypeEventHubs = "eventhubs"
)

// Types returns every supported handler type.
func Types() []string {
	return []string{TypeEventHubs, TypeForward, TypePubSub, TypeWriter}
}
