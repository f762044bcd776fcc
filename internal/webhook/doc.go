// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package webhook implements the verification and dispatch pipeline shared by every receiver.
//
// A Receiver is a fixed pipeline: method check, credential check, JSON parsing, action
// extraction and dispatch. The only receiver specific piece is the ActionExtractor, so a new
// external service is supported by writing a single extraction strategy. Secrets, handlers
// and the HTTP transport are collaborators injected through small interfaces.
package webhook
