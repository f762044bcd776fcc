// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package secrets provides the stores that hold the secrets shared with webhook senders.
//
// Stores are queried on every request and never cache, so rotating a secret only needs a change
// in the backing source. Values shorter than webhook.MinSecretLength or longer than
// webhook.MaxSecretLength are discarded with a warning.
package secrets
