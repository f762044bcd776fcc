// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azurealert receives Azure Monitor classic alert notifications.
package azurealert

import (
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	// Name is the receiver name used in the route and in the secret lookup.
	Name = "azurealert"
	// Description is a human readable summary of the receiver.
	Description = "Azure Monitor alerts, the action is the alert rule name found in context.name"
)

// Extractor returns the action extractor for Azure alert payloads.
func Extractor() webhook.ActionExtractor {
	return webhook.FieldExtractor("context", "name")
}
