// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package receivers collects the receiver variants supported by webhookd.
//
// Every variant shares the same verification pipeline and only differs in how the actions are
// extracted from the payload, so a variant is just a name bound to a webhook.ActionExtractor.
package receivers
