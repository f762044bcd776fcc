// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package server contains the HTTP server of webhookd.
// It sets up the HTTP server using the Fiber framework, configures middleware for logging,
// exposes the routes for health checks and mounts one route per enabled webhook receiver.
package server
