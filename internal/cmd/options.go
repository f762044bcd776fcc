// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/mia-platform/webhookd/internal/config"
	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/handler/writer"
	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/receivers"
	"github.com/mia-platform/webhookd/internal/receivers/eventgrid"
	"github.com/mia-platform/webhookd/internal/server"
	"github.com/mia-platform/webhookd/internal/webhook"
)

const closeTimeout = 10 * time.Second

// options configures the receivers and the handlers served by the process.
type options struct {
	receiverNames []string
	handlersPaths []string
	localOutput   bool
	stdout        io.Writer

	receivers    *receivers.Registry
	serverGetter func(context.Context) (server.Server, error)
	storeGetter  func() (webhook.SecretStore, error)

	lock sync.Mutex
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	for _, name := range o.receiverNames {
		if _, err := o.receivers.Get(name); err != nil {
			return fmt.Errorf("%w: %s", errInvalidReceiver, name)
		}
	}

	return nil
}

// enabledReceivers returns the receivers selected on the command line, or all of them.
func (o *options) enabledReceivers() []string {
	if len(o.receiverNames) == 0 {
		return o.receivers.Names()
	}

	names := slices.Clone(o.receiverNames)
	slices.Sort(names)
	return slices.Compact(names)
}

// execute serves the enabled receivers until ctx is done.
func (o *options) execute(ctx context.Context) error {
	if !o.lock.TryLock() {
		return nil
	}
	defer o.lock.Unlock()

	log := logger.FromContext(ctx).WithName(loggerName)
	registry, closers, err := o.dispatcher(ctx)
	defer closeHandlers(ctx, closers)
	if err != nil {
		return err
	}

	store, err := o.storeGetter()
	if err != nil {
		return err
	}

	srv, err := o.serverGetter(ctx)
	if err != nil {
		return err
	}

	authenticator := webhook.NewCodeAuthenticator(store)
	for _, name := range o.enabledReceivers() {
		extractor, err := o.receivers.Get(name)
		if err != nil {
			return err
		}

		srv.AddReceiver(webhook.NewReceiver(name, extractor, authenticator, registry))
		log.Info("receiver enabled", "receiver", name)
	}

	log.Debug("starting server", "handlers", registry.Len())
	srv.StartAsync(ctx)
	<-ctx.Done()

	log.Info("shutting down server")
	return srv.Stop()
}

// dispatcher builds the sealed registry holding every declared handler. The returned closers
// must be called even when an error is returned.
func (o *options) dispatcher(ctx context.Context) (*dispatch.Registry, []closeFunc, error) {
	configs, err := loadHandlerConfigs(o.handlersPaths)
	if err != nil {
		return nil, nil, err
	}

	registry := dispatch.NewRegistry()
	if err := registry.Register(eventgrid.Name, []string{eventgrid.SubscriptionValidationEvent}, eventgrid.ValidationHandler{}); err != nil {
		return nil, nil, err
	}

	if o.localOutput {
		if err := registry.Register(dispatch.AnyReceiver, nil, writer.NewHandler(o.stdout)); err != nil {
			return nil, nil, err
		}
	}

	closers := make([]closeFunc, 0)
	for _, cfg := range configs {
		if err := o.validateTarget(cfg); err != nil {
			return nil, closers, err
		}

		handler, closer, err := newHandler(ctx, cfg, o.stdout)
		if err != nil {
			return nil, closers, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		if err := registry.Register(cfg.Receiver, cfg.Actions, handler); err != nil {
			return nil, closers, err
		}
	}

	registry.Seal()
	return registry, closers, nil
}

// validateTarget rejects handlers declared for receivers that do not exist.
func (o *options) validateTarget(cfg *config.HandlerConfig) error {
	if cfg.Receiver == dispatch.AnyReceiver {
		return nil
	}

	if _, err := o.receivers.Get(cfg.Receiver); err != nil {
		return fmt.Errorf("%w %q: %w", config.ErrParsing, cfg.Source, err)
	}

	return nil
}

// closeHandlers releases the handlers resources, logging the failures.
func closeHandlers(ctx context.Context, closers []closeFunc) {
	if len(closers) == 0 {
		return
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	errs := make([]error, 0)
	for _, closer := range closers {
		if err := closer(closeCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.FromContext(ctx).WithName(loggerName).Error("error closing handlers", "error", err.Error())
	}
}
