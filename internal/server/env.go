// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// Config holds the environment driven settings of the HTTP server.
type Config struct {
	HTTPHost              string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort              int           `env:"HTTP_PORT" envDefault:"3000"`
	DisableStartupMessage bool          `env:"DISABLE_STARTUP_MESSAGE" envDefault:"true"`
	RoutePrefix           string        `env:"WEBHOOK_ROUTE_PREFIX" envDefault:"/api/webhooks/incoming"`
	TrustForwardedProto   bool          `env:"TRUST_FORWARDED_PROTO" envDefault:"false"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func LoadServerConfig() (*Config, error) {
	envVars, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	envVars.RoutePrefix = strings.TrimSuffix(envVars.RoutePrefix, "/")
	if err := validateEnvironmentVariables(&envVars); err != nil {
		return nil, err
	}
	return &envVars, nil
}

func validateEnvironmentVariables(envVars *Config) error {
	envError := make([]string, 0)

	if envVars.HTTPPort < 1 || envVars.HTTPPort > 65535 {
		envError = append(envError, "HTTP_PORT is out of valid range (1-65535)")
	}
	if envVars.RoutePrefix != "" && !strings.HasPrefix(envVars.RoutePrefix, "/") {
		envError = append(envError, "WEBHOOK_ROUTE_PREFIX must start with '/'")
	}
	if strings.HasPrefix(envVars.RoutePrefix, statusPrefix) {
		envError = append(envError, "WEBHOOK_ROUTE_PREFIX cannot be inside "+statusPrefix)
	}
	if envVars.ShutdownTimeout < 0 {
		envError = append(envError, "SHUTDOWN_TIMEOUT cannot be negative")
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}
