// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/mia-platform/webhookd/internal/receivers"
)

const (
	serveCmdUsageTemplate = "serve [%s]..."
	serveCmdShort         = "serve the webhook receivers"
	serveCmdLong          = `Serve the webhook receivers on HTTP.
	Every receiver is reachable on <prefix>/<receiver> and <prefix>/<receiver>/<id>
	and authenticates the requests with the secret passed in the 'code' query
	parameter. When no receiver is given all of them are enabled.

	Authenticated deliveries are passed to the handlers declared in the handlers
	files, please refer to the documentation for the options of every handler type.

	The available receivers are:
	%s`

	serveCmdExample = `# Serve the Azure Alert receiver writing the deliveries to stdout
	webhookd serve azurealert --local-output

	# Serve all the receivers with the handlers declared in a directory
	webhookd serve -f handlers/`
)

// ServeCmd returns the Cobra command that serves the webhook receivers.
func ServeCmd() *cobra.Command {
	flags := &flags{}
	available := receivers.Default()
	allNames := available.Names()

	descriptions := make([]string, 0, len(allNames))
	for _, name := range allNames {
		descriptions = append(descriptions, fmt.Sprintf("- %s: %s", name, available.Description(name)))
	}

	cmd := &cobra.Command{
		Use:     fmt.Sprintf(serveCmdUsageTemplate, strings.Join(allNames, "|")),
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Docf(serveCmdLong, strings.Join(descriptions, "\n")),
		Example: heredoc.Doc(serveCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: validArgsFunc(available),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args, available)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
