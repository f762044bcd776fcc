// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mia-platform/webhookd/internal/logger"
)

const (
	loggerName = "webhookd:webhook"
)

// Receiver runs the verification and dispatch pipeline for one receiver variant.
// A Receiver holds no per request state and is safe for concurrent use.
type Receiver struct {
	// Name is the fixed lowercase name of the receiver variant. It is never read from the request.
	Name string

	Extractor     ActionExtractor
	Authenticator Authenticator
	Dispatcher    Dispatcher

	// Parser decodes the body; ParseJSON is used when nil.
	Parser PayloadParser
	// Now returns the reception time stamped on deliveries; time.Now is used when nil.
	Now func() time.Time
}

// NewReceiver returns a Receiver wiring extractor, authenticator and dispatcher together.
func NewReceiver(name string, extractor ActionExtractor, authenticator Authenticator, dispatcher Dispatcher) *Receiver {
	return &Receiver{
		Name:          name,
		Extractor:     extractor,
		Authenticator: authenticator,
		Dispatcher:    dispatcher,
	}
}

// Receive handles a single request addressed to the receiver instance id and returns the
// response to send back. Every failure caused by the request is reported through the Response;
// the returned error is only set when the receiver is misused or ctx is done, in which case no
// response must be written.
func (r *Receiver) Receive(ctx context.Context, id string, req Request) (Response, error) {
	if err := r.validate(ctx); err != nil {
		return Response{}, err
	}

	identity := Identity{Name: r.Name, ID: id}
	log := logger.FromContext(ctx).WithName(loggerName).With("receiver", identity.Name, "id", identity.ID)

	if req.Method != http.MethodPost {
		log.Debug("unsupported method", "method", req.Method)
		return methodNotAllowed(identity, req.Method), nil
	}

	if err := r.Authenticator.Authenticate(ctx, identity, req); err != nil {
		log.Debug("request authentication failed", "error", err.Error())
		return ErrorResponse(err), nil
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	payload, err := r.parser()(req.Body)
	if err != nil {
		log.Error("invalid request body", "error", err.Error())
		return ErrorResponse(asBadBody(err)), nil
	}

	actions, err := r.Extractor.Extract(ctx, identity, req, payload)
	if err == nil {
		err = validateActions(actions)
	}
	if err != nil {
		log.Error("unable to extract actions from request", "error", err.Error())
		return ErrorResponse(asBadBody(err)), nil
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	log.Trace("dispatching webhook", "actions", actions)
	response, err := r.Dispatcher.Dispatch(ctx, Delivery{
		Receiver:   identity.Name,
		ID:         identity.ID,
		Actions:    actions,
		Payload:    payload,
		Header:     req.Header,
		ReceivedAt: r.now(),
	})
	if err != nil {
		return ErrorResponse(asDispatchFailure(err)), nil
	}

	if response.IsZero() {
		response.StatusCode = http.StatusOK
	}
	return response, nil
}

func (r *Receiver) validate(ctx context.Context) error {
	switch {
	case ctx == nil:
		return fmt.Errorf("%w: nil context", ErrInvalidArgument)
	case r.Name == "":
		return fmt.Errorf("%w: receiver without name", ErrInvalidArgument)
	case r.Extractor == nil:
		return fmt.Errorf("%w: receiver %q without action extractor", ErrInvalidArgument, r.Name)
	case r.Authenticator == nil:
		return fmt.Errorf("%w: receiver %q without authenticator", ErrInvalidArgument, r.Name)
	case r.Dispatcher == nil:
		return fmt.Errorf("%w: receiver %q without dispatcher", ErrInvalidArgument, r.Name)
	}
	return nil
}

func (r *Receiver) parser() PayloadParser {
	if r.Parser != nil {
		return r.Parser
	}
	return ParseJSON
}

func (r *Receiver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func methodNotAllowed(identity Identity, method string) Response {
	response := ErrorResponse(NewError(KindUnsupportedMethod, fmt.Sprintf("the HTTP '%s' method is not supported by the '%s' WebHook receiver", method, identity.Name)))
	response.Header = http.Header{"Allow": []string{http.MethodPost}}
	return response
}

// validateActions enforces that the action set is usable for dispatch.
func validateActions(actions []string) error {
	if len(actions) == 0 {
		return NewError(KindBadBody, "the WebHook request does not contain any action")
	}

	for _, action := range actions {
		if action == "" {
			return NewError(KindBadBody, "the WebHook request contains an empty action")
		}
	}

	return nil
}

// asBadBody turns any parser or extractor failure into a bad request, keeping the message of
// typed errors.
func asBadBody(err error) error {
	var webhookErr *Error
	if !errors.As(err, &webhookErr) {
		return WrapError(KindBadBody, err.Error(), err)
	}

	if webhookErr.Kind != KindBadBody || webhookErr.Status != 0 {
		return WrapError(KindBadBody, webhookErr.Message, err)
	}
	return err
}

// asDispatchFailure keeps the status chosen by the dispatcher, defaulting to 500.
func asDispatchFailure(err error) error {
	var webhookErr *Error
	if errors.As(err, &webhookErr) {
		return err
	}
	return DispatchError(http.StatusInternalServerError, "error processing webhook message", err)
}
