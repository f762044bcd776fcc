// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps hclog behind a small leveled interface and moves loggers around
// through context.Context. It also provides the fiber middleware that tags every request
// with its request id.
package logger
