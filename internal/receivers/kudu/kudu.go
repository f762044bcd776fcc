// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package kudu receives Azure App Service (Kudu) deployment notifications.
package kudu

import (
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	Name        = "kudu"
	Description = "Azure App Service deployments, the action is the deployment status"
)

func Extractor() webhook.ActionExtractor {
	return webhook.FieldExtractor("status")
}
