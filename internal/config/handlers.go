// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TypeField     = "type"
	ReceiverField = "receiver"
)

var (
	// ErrParsing reports failures that occur while decoding handler files.
	ErrParsing = errors.New("error parsing")

	envReferenceRegexp = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// HandlerConfig holds the declaration of a single handler.
type HandlerConfig struct {
	// Type selects the handler implementation.
	Type string `yaml:"type"`
	// Receiver is the receiver name whose deliveries reach the handler, "*" matches all of them.
	Receiver string `yaml:"receiver"`
	// Actions restricts the deliveries to the ones containing at least one of these actions.
	Actions []string `yaml:"actions,omitempty"`
	// Options are specific to Type and decoded by DecodeOptions.
	Options yaml.Node `yaml:"options,omitempty"`

	// Source is the file the handler has been read from.
	Source string `yaml:"-"`
}

// DecodeOptions decodes the handler options into target. Unknown options are reported as
// errors, missing options leave target untouched.
func (c *HandlerConfig) DecodeOptions(target any) error {
	if c.Options.IsZero() {
		return nil
	}

	raw, err := yaml.Marshal(&c.Options)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrParsing, c.Source, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w %q: options of %s handler for %q: %w", ErrParsing, c.Source, c.Type, c.Receiver, err)
	}

	return nil
}

// expandEnv replaces the ${NAME} references with the value of the NAME environment variable.
// A bare $NAME is kept as is.
func expandEnv(data []byte) []byte {
	return envReferenceRegexp.ReplaceAllFunc(data, func(reference []byte) []byte {
		name := envReferenceRegexp.FindSubmatch(reference)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// NewHandlerConfigsFromPath parses the file at path and returns any handler configuration
// it contains. It reports failures encountered while reading or decoding the data.
func NewHandlerConfigsFromPath(path string) ([]*HandlerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	decoder.KnownFields(true)

	configs := make([]*HandlerConfig, 0)
	for {
		config := new(HandlerConfig)
		err := decoder.Decode(&config)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		// Skip empty documents.
		if config == nil {
			continue
		}

		missingFields := []string{}
		if config.Type == "" {
			missingFields = append(missingFields, TypeField)
		}
		if config.Receiver == "" {
			missingFields = append(missingFields, ReceiverField)
		}

		if len(missingFields) > 0 {
			return nil, fmt.Errorf("%w %q: missing required fields: %v", ErrParsing, path, strings.Join(missingFields, ", "))
		}

		for _, action := range config.Actions {
			if action == "" {
				return nil, fmt.Errorf("%w %q: empty action for %s handler", ErrParsing, path, config.Type)
			}
		}

		config.Source = path
		configs = append(configs, config)
	}

	return configs, nil
}
