// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	internalcmd "github.com/mia-platform/webhookd/internal/cmd"
	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/logger"
)

var (
	// Version is injected at build time with -ldflags.
	Version = info.Version
	// BuildDate is injected at build time with -ldflags.
	BuildDate = info.BuildDate

	appName      = info.AppName
	versionShort = "Display the " + appName + " version"
)

const (
	appShort = "webhookd receives, verifies and dispatches webhooks sent by external services"
	appLong  = `webhookd exposes one HTTP endpoint for every enabled webhook receiver.
	Every request is authenticated with the secret passed in the 'code' query parameter,
	its JSON body is parsed and the actions it carries are dispatched to the handlers
	declared for the receiver.`

	logLevelFlagName      = "log-level"
	logLevelShortFlagName = "v"

	versionCmdName = "version"
)

// rootEnv holds the defaults of the persistent flags read from the environment.
type rootEnv struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	logLevel string
}

// addFlags registers the persistent CLI flags on cmd.
func (f *rootFlags) addFlags(cmd *cobra.Command, defaults rootEnv) {
	levels := make([]string, 0, len(logger.Levels()))
	for _, level := range logger.Levels() {
		levels = append(levels, level.String())
	}

	usage := "set the logging level, defaults to the LOG_LEVEL environment variable (possible values: " + strings.Join(levels, ", ") + ")"
	cmd.PersistentFlags().StringVarP(&f.logLevel, logLevelFlagName, logLevelShortFlagName, defaults.LogLevel, usage)
}

func main() {
	info.Version = Version
	info.BuildDate = BuildDate

	cmd := rootCmd()
	log := logger.NewLogger(cmd.OutOrStderr())
	ctx, stop := signal.NotifyContext(logger.WithContext(context.Background(), log), os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	if err := cmd.ExecuteContext(ctx); err != nil {
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}

// rootCmd constructs the root Cobra command with shared configuration.
func rootCmd() *cobra.Command {
	flag := &rootFlags{}
	defaults, err := env.ParseAs[rootEnv]()
	if err != nil {
		defaults.LogLevel = logger.INFO.String()
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logger.ParseLevel(flag.logLevel)
			if err != nil {
				cmd.PrintErrln(err)
				return err
			}

			logger.FromContext(cmd.Context()).SetLevel(level)
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flag.addFlags(cmd, defaults)
	cmd.AddCommand(
		internalcmd.ServeCmd(),
		versionCmd(),
	)

	return cmd
}

// versionCmd constructs the Cobra command that prints version information.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdName,
		Short: heredoc.Doc(versionShort),

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}

			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, BuildDate, runtime.Version()))
		},
	}
}

// versionString formats the version metadata for display.
func versionString(version, buildDate, runtimeVersion string) string {
	outputString := appName + " " + version
	if buildDate != "" {
		outputString += " (" + buildDate + ")"
	}

	return outputString + ", Go Version: " + runtimeVersion
}
