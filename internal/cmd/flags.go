// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/webhookd/internal/receivers"
)

const (
	handlersPathFlagName  = "handlers-file"
	handlersPathFlagShort = "f"
	handlersPathFlagUsage = "Path to a file or directory containing handler declarations. Can be specified multiple times."

	localOutputFlagName  = "local-output"
	localOutputFlagUsage = "If set, writes every delivery to stdout in addition to the declared handlers"
	defaultLocalOutput   = false
)

// flags collects the CLI options of the serve command.
type flags struct {
	handlersPaths []string
	localOutput   bool
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(
		&f.handlersPaths,
		handlersPathFlagName,
		handlersPathFlagShort,
		nil,
		handlersPathFlagUsage)

	cmd.Flags().BoolVar(&f.localOutput, localOutputFlagName, defaultLocalOutput, localOutputFlagUsage)
}

// toOptions builds an options instance from the parsed flags and CLI arguments.
func (f *flags) toOptions(cmd *cobra.Command, args []string, available *receivers.Registry) (*options, error) {
	handlersPaths, err := collectPaths(f.handlersPaths)
	if err != nil {
		return nil, err
	}

	receiverNames := make([]string, 0, len(args))
	for _, arg := range args {
		receiverNames = append(receiverNames, strings.ToLower(arg))
	}

	return &options{
		receiverNames: receiverNames,
		handlersPaths: handlersPaths,
		localOutput:   f.localOutput,
		stdout:        cmd.OutOrStdout(),
		receivers:     available,
		serverGetter:  serverGetter,
		storeGetter:   storeGetter,
	}, nil
}
