// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/mia-platform/webhookd/internal/config"
	"github.com/mia-platform/webhookd/internal/receivers"
	"github.com/mia-platform/webhookd/internal/secrets"
	"github.com/mia-platform/webhookd/internal/server"
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	loggerName = "webhookd:serve"
)

var (
	errInvalidReceiver    = errors.New("invalid receiver name provided")
	errUnknownHandlerType = errors.New("unknown handler type")

	// serverGetter returns the server hosting the receivers.
	// It can be overridden for testing purposes.
	serverGetter = server.NewServer

	// storeGetter returns the secret store used to authenticate the requests.
	// It can be overridden for testing purposes.
	storeGetter = func() (webhook.SecretStore, error) {
		return secrets.NewStoreFromEnv()
	}
)

// handleError will do custom print error handling based on the type of error received.
// it will return nil if the command must return 0 exit code, otherwise it will return
// the original error.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errInvalidReceiver):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// handleEnvError keeps the first failure of an env.AggregateError.
func handleEnvError(err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		return parseErr.Errors[0]
	}

	return err
}

// unwrappedError returns the unwrapped error if available, otherwise it returns the original error.
func unwrappedError(err error) error {
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return unwrapped
	}

	return err
}

func validArgsFunc(available *receivers.Registry) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var comps []string
		for _, name := range available.Names() {
			if strings.HasPrefix(name, toComplete) && !containsName(args, name) {
				comps = append(comps, cobra.CompletionWithDesc(name, available.Description(name)))
			}
		}

		return comps, cobra.ShellCompDirectiveNoFileComp
	}
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func collectPaths(paths []string) ([]string, error) {
	collected := make([]string, 0)
	for _, p := range paths {
		cleanedPath := filepath.Clean(p)
		err := filepath.Walk(cleanedPath, func(walkedPath string, info fs.FileInfo, err error) error {
			if err != nil {
				return fmt.Errorf("handlers file %q: %w", walkedPath, unwrappedError(err))
			}

			switch {
			case !info.IsDir(): // it's a file add to the collection
				collected = append(collected, walkedPath)
			case info.IsDir() && cleanedPath != walkedPath: // skip directories if is not the root path
				return filepath.SkipDir
			}

			return nil
		})

		if err != nil {
			return nil, err
		}
	}

	return collected, nil
}

// loadHandlerConfigs loads all handler declarations from the provided paths.
func loadHandlerConfigs(paths []string) ([]*config.HandlerConfig, error) {
	configs := make([]*config.HandlerConfig, 0)
	for _, path := range paths {
		fileConfigs, err := config.NewHandlerConfigsFromPath(path)
		if err != nil {
			return nil, err
		}

		configs = append(configs, fileConfigs...)
	}

	return configs, nil
}
