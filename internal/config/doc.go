// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config reads the handlers files.
//
// A handlers file is a multi document YAML file, every document declares one handler:
//
//	type: forward
//	receiver: azurealert
//	actions:
//	  - Activated
//	options:
//	  url: https://alerts.example.com/hooks
//	  token: ${ALERTS_TOKEN}
//
// References in the ${NAME} form are replaced with the value of the environment variable NAME
// before the file is decoded.
package config
