// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package writer implements a handler that prints the received deliveries to the given
// io.Writer instance.
// It is primarily useful for debugging purposes, or for inspecting the payloads sent by a new
// webhook source before configuring a real handler.
package writer
