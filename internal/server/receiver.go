// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	forwardedProtoHeader = "X-Forwarded-Proto"
	idParam              = "id"
)

// receiverHandler adapts the fiber request to the receiver pipeline and writes back its response.
func receiverHandler(receiver *webhook.Receiver, trustForwardedProto bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		response, err := receiver.Receive(ctx, c.Params(idParam), webhook.Request{
			Method: c.Method(),
			Secure: isSecure(c, trustForwardedProto),
			Query:  queryValues(c),
			Header: requestHeaders(c),
			Body:   c.Body(),
		})
		if err != nil {
			logger.FromContext(ctx).WithName(loggerName).Error("webhook not processed", "receiver", receiver.Name, "error", err.Error())
			return err
		}

		return writeResponse(c, response)
	}
}

// isSecure reports whether the request reached us over TLS. Behind a TLS terminating proxy the
// X-Forwarded-Proto header is used, but only when the proxy is trusted.
func isSecure(c *fiber.Ctx, trustForwardedProto bool) bool {
	if c.Context().IsTLS() {
		return true
	}

	if !trustForwardedProto {
		return false
	}

	proto, _, _ := strings.Cut(c.Get(forwardedProtoHeader), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}

// queryValues keeps every occurrence of repeated query parameters.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

func requestHeaders(c *fiber.Ctx) http.Header {
	headers := http.Header{}
	for key, values := range c.GetReqHeaders() {
		for _, value := range values {
			headers.Add(key, value)
		}
	}
	return headers
}

func writeResponse(c *fiber.Ctx, response webhook.Response) error {
	for key, values := range response.Header {
		for _, value := range values {
			c.Append(key, value)
		}
	}

	c.Status(response.StatusCode)
	switch body := response.Body.(type) {
	case nil:
		return nil
	case []byte:
		return c.Send(body)
	case string:
		return c.SendString(body)
	default:
		return c.JSON(body)
	}
}
