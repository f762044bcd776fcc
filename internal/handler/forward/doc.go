// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package forward implements a handler that posts every delivery, wrapped in a
// dispatch.Envelope, to an HTTP endpoint.
//
// The endpoint can be protected with a static bearer token or with an OAuth2 client credentials
// flow. Any answer outside of the 2xx range is reported to the webhook sender as a 502.
package forward
