// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	forwardedHostHeaderKey = "x-forwarded-host"
	forwardedForHeaderKey  = "x-forwarded-for"
	requestIDHeaderName    = "x-request-id"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

type loggingContext interface {
	Request() requestLoggingContext
	Response() responseLoggingContext
}

type requestLoggingContext interface {
	GetHeader(string) string
	Path() string
	Host() string
	Method() string
}

type responseLoggingContext interface {
	BodySize() int
	StatusCode() int
}

type httpFields struct {
	Request  *requestFields  `json:"request,omitempty"`
	Response *responseFields `json:"response,omitempty"`
}

type userAgent struct {
	Original string `json:"original,omitempty"`
}

type requestFields struct {
	Method    string    `json:"method,omitempty"`
	UserAgent userAgent `json:"userAgent"`
}

type responseBody struct {
	Bytes int `json:"bytes,omitempty"`
}

type responseFields struct {
	StatusCode int          `json:"statusCode,omitempty"`
	Body       responseBody `json:"body"`
}

type hostFields struct {
	Hostname      string `json:"hostname,omitempty"`
	ForwardedHost string `json:"forwardedHost,omitempty"`
	IP            string `json:"ip,omitempty"`
}

// urlFields only carries the path: the query string holds the webhook credential and must
// never reach the logs.
type urlFields struct {
	Path string `json:"path,omitempty"`
}

func removePort(host string) string {
	return strings.Split(host, ":")[0]
}

// RequestID returns the caller provided request id or a new random one.
func RequestID(ctx loggingContext) string {
	if requestID := ctx.Request().GetHeader(requestIDHeaderName); requestID != "" {
		return requestID
	}

	requestID, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return requestID.String()
}

func requestHTTPFields(ctx loggingContext) *requestFields {
	return &requestFields{
		Method: ctx.Request().Method(),
		UserAgent: userAgent{
			Original: ctx.Request().GetHeader("user-agent"),
		},
	}
}

func requestHostFields(ctx loggingContext) hostFields {
	return hostFields{
		ForwardedHost: ctx.Request().GetHeader(forwardedHostHeaderKey),
		Hostname:      removePort(ctx.Request().Host()),
		IP:            ctx.Request().GetHeader(forwardedForHeaderKey),
	}
}

func logIncomingRequest(ctx loggingContext, logger Logger) {
	logger.Trace(IncomingRequestMessage,
		"http", httpFields{Request: requestHTTPFields(ctx)},
		"url", urlFields{Path: ctx.Request().Path()},
		"host", requestHostFields(ctx),
	)
}

func logRequestCompleted(ctx loggingContext, logger Logger, startTime time.Time) {
	logger.Info(RequestCompletedMessage,
		"http", httpFields{
			Request: requestHTTPFields(ctx),
			Response: &responseFields{
				StatusCode: ctx.Response().StatusCode(),
				Body: responseBody{
					Bytes: ctx.Response().BodySize(),
				},
			},
		},
		"url", urlFields{Path: ctx.Request().Path()},
		"host", requestHostFields(ctx),
		"responseTime", float64(time.Since(startTime).Milliseconds()),
	)
}

type fiberLoggingContext struct {
	c          *fiber.Ctx
	handlerErr error
}

func (flc *fiberLoggingContext) Request() requestLoggingContext {
	return flc
}

func (flc *fiberLoggingContext) Response() responseLoggingContext {
	return flc
}

func (flc *fiberLoggingContext) GetHeader(key string) string {
	return flc.c.Get(key, "")
}

func (flc *fiberLoggingContext) Path() string {
	return string(flc.c.Request().URI().Path())
}

func (flc *fiberLoggingContext) Host() string {
	return string(flc.c.Request().Host())
}

func (flc *fiberLoggingContext) Method() string {
	return flc.c.Method()
}

func (flc *fiberLoggingContext) fiberError() *fiber.Error {
	if fiberErr, ok := flc.handlerErr.(*fiber.Error); ok {
		return fiberErr
	}
	return nil
}

func (flc *fiberLoggingContext) BodySize() int {
	if fiberErr := flc.fiberError(); fiberErr != nil {
		return len(fiberErr.Error())
	}

	if content := flc.c.GetRespHeader(fiber.HeaderContentLength); content != "" {
		if length, err := strconv.Atoi(content); err == nil {
			return length
		}
	}
	return len(flc.c.Response().Body())
}

func (flc *fiberLoggingContext) StatusCode() int {
	if fiberErr := flc.fiberError(); fiberErr != nil {
		return fiberErr.Code
	}

	return flc.c.Response().StatusCode()
}

// RequestMiddlewareLogger is a fiber middleware that logs every request not matching one of
// excludedPrefix. The request logger, tagged with the request id, is stored in the user context
// so handlers can retrieve it with FromContext.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) func(*fiber.Ctx) error {
	return func(fiberCtx *fiber.Ctx) error {
		loggingCtx := &fiberLoggingContext{c: fiberCtx}

		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(loggingCtx.Request().Path(), prefix) {
				return fiberCtx.Next()
			}
		}

		start := time.Now()

		requestID := RequestID(loggingCtx)
		fiberCtx.Set(requestIDHeaderName, requestID)
		requestLogger := logger.With("reqId", requestID)
		fiberCtx.SetUserContext(WithContext(fiberCtx.UserContext(), requestLogger))

		logIncomingRequest(loggingCtx, requestLogger.WithName("webhookd:incoming_request"))
		err := fiberCtx.Next()
		loggingCtx.handlerErr = err

		logRequestCompleted(loggingCtx, requestLogger.WithName("webhookd:request_completed"), start)
		return err
	}
}
