// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/webhookd/internal/config"
	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/handler"
	"github.com/mia-platform/webhookd/internal/handler/eventhubs"
	"github.com/mia-platform/webhookd/internal/handler/forward"
	"github.com/mia-platform/webhookd/internal/handler/gcppubsub"
	"github.com/mia-platform/webhookd/internal/handler/writer"
)

// closeFunc releases the resources held by a handler.
type closeFunc func(ctx context.Context) error

// newHandler builds the handler declared by cfg. The returned closeFunc is nil for handlers
// without resources to release.
func newHandler(ctx context.Context, cfg *config.HandlerConfig, stdout io.Writer) (dispatch.Handler, closeFunc, error) {
	switch cfg.Type {
	case handler.TypeWriter:
		if err := cfg.DecodeOptions(&struct{}{}); err != nil {
			return nil, nil, err
		}
		return writer.NewHandler(stdout), nil, nil
	case handler.TypeForward:
		opts, err := loadOptions[forward.Config](cfg)
		if err != nil {
			return nil, nil, err
		}

		forwarder, err := forward.NewHandler(opts)
		if err != nil {
			return nil, nil, err
		}
		return forwarder, nil, nil
	case handler.TypePubSub:
		opts, err := loadOptions[gcppubsub.Config](cfg)
		if err != nil {
			return nil, nil, err
		}

		publisher, err := gcppubsub.NewHandler(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func(context.Context) error { return publisher.Close() }, nil
	case handler.TypeEventHubs:
		opts, err := loadOptions[eventhubs.Config](cfg)
		if err != nil {
			return nil, nil, err
		}

		producer, err := eventhubs.NewHandler(opts)
		if err != nil {
			return nil, nil, err
		}
		return producer, producer.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w %q in %q: supported types are %s", errUnknownHandlerType, cfg.Type, cfg.Source, strings.Join(handler.Types(), ", "))
	}
}

// loadOptions reads the environment defaults of T and overrides them with the options
// declared in the handlers file.
func loadOptions[T any](cfg *config.HandlerConfig) (T, error) {
	opts, err := env.ParseAs[T]()
	if err != nil {
		return opts, handleEnvError(err)
	}

	if err := cfg.DecodeOptions(&opts); err != nil {
		return opts, err
	}

	return opts, nil
}
