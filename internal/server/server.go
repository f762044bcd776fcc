// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	loggerName   = "webhookd:server"
	statusPrefix = "/-/"
)

// Server is the HTTP transport of the webhook receivers.
type Server interface {
	// AddReceiver mounts receiver on <prefix>/<name> and <prefix>/<name>/:id.
	AddReceiver(receiver *webhook.Receiver)
	Start() error
	Stop() error
	StartAsync(ctx context.Context)
}

type impServer struct {
	Config

	app *fiber.App
}

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")
)

func NewServer(ctx context.Context) (Server, error) {
	cfg, err := LoadServerConfig()
	if err != nil {
		return nil, err
	}

	return newServer(ctx, *cfg), nil
}

func newServer(ctx context.Context, cfg Config) *impServer {
	app := fiber.New(fiber.Config{
		AppName:               info.AppName,
		DisableStartupMessage: cfg.DisableStartupMessage,
		Immutable:             true, // request values stay valid after the handler returns
		ErrorHandler:          errorHandler,
	})
	log := logger.FromContext(ctx)
	app.Use(requestContext(ctx))
	app.Use(logger.RequestMiddlewareLogger(log, []string{statusPrefix}))

	statusRoutes(app, info.AppName, info.Version)

	return &impServer{
		app:    app,
		Config: cfg,
	}
}

// requestContext makes every request context a child of ctx, so requests still in flight
// are cancelled when the server context is done.
func requestContext(ctx context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func statusRoutes(app *fiber.App, name, version string) {
	status := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "OK",
			"name":    name,
			"version": version,
		})
	}

	app.Get(statusPrefix+"healthz", status)
	app.Get(statusPrefix+"ready", status)
}

func (s *impServer) AddReceiver(receiver *webhook.Receiver) {
	handler := receiverHandler(receiver, s.TrustForwardedProto)
	basePath := s.RoutePrefix + "/" + receiver.Name

	s.app.All(basePath, handler)
	s.app.All(basePath+"/:id", handler)
}

func (s *impServer) Start() error {
	if err := s.app.Listen(fmt.Sprintf("%s:%d", s.HTTPHost, s.HTTPPort)); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

func (s *impServer) Stop() error {
	if err := s.app.ShutdownWithTimeout(s.ShutdownTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}

func (s *impServer) StartAsync(ctx context.Context) {
	log := logger.FromContext(ctx).WithName(loggerName)
	go func() {
		if err := s.Start(); err != nil {
			log.Error(err.Error())
		}
	}()
}

// errorHandler answers every error escaping a route with the same JSON shape used by the
// webhook receivers.
func errorHandler(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	message := "error processing webhook message"

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		message = "the server is shutting down"
	}

	return c.Status(status).JSON(fiber.Map{
		"statusCode": status,
		"error":      http.StatusText(status),
		"message":    message,
	})
}
