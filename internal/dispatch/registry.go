// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrSealed is returned when a handler is registered after the registry has been sealed.
	ErrSealed = errors.New("registry is sealed")
	// ErrInvalidRegistration is returned for registrations that can never match a delivery.
	ErrInvalidRegistration = errors.New("invalid handler registration")
)

const (
	// AnyReceiver matches the deliveries of every receiver.
	AnyReceiver = "*"

	loggerName = "webhookd:dispatch"
)

var _ webhook.Dispatcher = &Registry{}

type route struct {
	receiver string
	actions  map[string]struct{}
	handler  Handler
}

func (r route) matches(delivery webhook.Delivery) bool {
	if r.receiver != AnyReceiver && r.receiver != delivery.Receiver {
		return false
	}

	if len(r.actions) == 0 {
		return true
	}

	for _, action := range delivery.Actions {
		if _, found := r.actions[action]; found {
			return true
		}
	}
	return false
}

// Registry is a webhook.Dispatcher invoking the handlers registered for a delivery.
type Registry struct {
	lock   sync.RWMutex
	sealed bool
	routes []route
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds handler for the deliveries of receiver. When actions is empty handler receives
// every delivery of the receiver, otherwise only the deliveries containing at least one of them.
func (r *Registry) Register(receiver string, actions []string, handler Handler) error {
	switch {
	case receiver == "":
		return fmt.Errorf("%w: empty receiver name", ErrInvalidRegistration)
	case handler == nil:
		return fmt.Errorf("%w: nil handler for receiver %q", ErrInvalidRegistration, receiver)
	}

	actionSet := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		if action == "" {
			return fmt.Errorf("%w: empty action for receiver %q", ErrInvalidRegistration, receiver)
		}
		actionSet[action] = struct{}{}
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.sealed {
		return ErrSealed
	}

	r.routes = append(r.routes, route{receiver: receiver, actions: actionSet, handler: handler})
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sealed = true
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.routes)
}

// Dispatch invokes once, in registration order, every handler matching delivery. All the
// handlers run even if one of them fails; the returned error joins every failure and carries the
// status of the first one. Without failures the first non zero response is returned.
func (r *Registry) Dispatch(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	log := logger.FromContext(ctx).WithName(loggerName)

	r.lock.RLock()
	routes := r.routes
	r.lock.RUnlock()

	var response webhook.Response
	var errs []error
	matched := 0
	for idx, route := range routes {
		if !route.matches(delivery) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return webhook.Response{}, err
		}

		matched++
		handlerResponse, err := route.handler.Handle(ctx, delivery)
		if err != nil {
			log.Error("handler failed", "handler", idx, "type", fmt.Sprintf("%T", route.handler), "error", err.Error())
			errs = append(errs, err)
			continue
		}

		if response.IsZero() && !handlerResponse.IsZero() {
			response = handlerResponse
		}
	}

	log.Trace("delivery dispatched", "handlers", matched, "failures", len(errs))
	if len(errs) > 0 {
		return webhook.Response{}, failure(errs)
	}

	return response, nil
}

// failure joins errs into a dispatch error using the status and message of the first one.
func failure(errs []error) error {
	status := 0
	message := "error processing webhook message"

	var webhookErr *webhook.Error
	if errors.As(errs[0], &webhookErr) {
		status = webhookErr.StatusCode()
		message = webhookErr.Message
	}

	return webhook.DispatchError(status, message, errors.Join(errs...))
}
