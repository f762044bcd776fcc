// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/logger"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrForward wraps every error emitted by the forward handler.
	ErrForward = errors.New("forward handler")
)

const (
	// DeliveryHeader carries the delivery id of the forwarded envelope.
	DeliveryHeader = "X-Webhookd-Delivery"

	loggerName     = "webhookd:handler:forward"
	defaultTimeout = 10 * time.Second
)

// Config holds the options of a forward handler.
type Config struct {
	URL          string            `yaml:"url" env:"FORWARD_URL"`
	Token        string            `yaml:"token" env:"FORWARD_TOKEN"`
	ClientID     string            `yaml:"clientId" env:"FORWARD_CLIENT_ID"`
	ClientSecret string            `yaml:"clientSecret" env:"FORWARD_CLIENT_SECRET"`
	TokenURL     string            `yaml:"tokenUrl" env:"FORWARD_TOKEN_URL"`
	Timeout      time.Duration     `yaml:"timeout" env:"FORWARD_TIMEOUT" envDefault:"10s"`
	Headers      map[string]string `yaml:"headers"`
}

func (c Config) validate() error {
	endpoint, err := url.Parse(c.URL)
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url is required", ErrForward)
	case err != nil:
		return fmt.Errorf("%w: invalid url: %w", ErrForward, err)
	case endpoint.Scheme != "http" && endpoint.Scheme != "https":
		return fmt.Errorf("%w: url must use the http or https scheme", ErrForward)
	case len(c.ClientID) > 0 && len(c.ClientSecret) == 0:
		return fmt.Errorf("%w: clientSecret is required when clientId is set", ErrForward)
	case len(c.ClientSecret) > 0 && len(c.ClientID) == 0:
		return fmt.Errorf("%w: clientId is required when clientSecret is set", ErrForward)
	case len(c.ClientID) > 0 && len(c.TokenURL) == 0:
		return fmt.Errorf("%w: tokenUrl is required when clientId is set", ErrForward)
	case len(c.ClientID) > 0 && len(c.Token) > 0:
		return fmt.Errorf("%w: token and clientId cannot be used together", ErrForward)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout cannot be negative", ErrForward)
	}

	return nil
}

var _ dispatch.Handler = &Handler{}

// Handler posts deliveries to Config.URL.
type Handler struct {
	config Config
	client *http.Client
}

// NewHandler validates config and returns a ready to use Handler.
func NewHandler(config Config) (*Handler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Handler{
		config: config,
		//nolint:contextcheck // the token source outlives any single request
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: newTransport(context.Background(), config),
		},
	}, nil
}

// newTransport creates an HTTP transport configured with the client credentials flow when
// requested.
func newTransport(ctx context.Context, config Config) http.RoundTripper {
	if len(config.ClientID) == 0 {
		return http.DefaultTransport
	}

	credentials := clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &oauth2.Transport{
		Source: credentials.TokenSource(ctx),
	}
}

// Handle implements dispatch.Handler.
func (h *Handler) Handle(ctx context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	log := logger.FromContext(ctx).WithName(loggerName)
	envelope := dispatch.NewEnvelope(delivery)

	body, err := json.Marshal(envelope)
	if err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrForward, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.URL, bytes.NewReader(body))
	if err != nil {
		return webhook.Response{}, fmt.Errorf("%w: %w", ErrForward, err)
	}

	for key, value := range h.config.Headers {
		request.Header.Set(key, value)
	}
	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(DeliveryHeader, envelope.DeliveryID)
	if len(h.config.Token) > 0 {
		request.Header.Set("Authorization", "Bearer "+h.config.Token)
	}

	resp, err := h.client.Do(request)
	if err != nil {
		return webhook.Response{}, upstreamError("the forward endpoint cannot be reached", err)
	}
	defer resp.Body.Close()

	log.Trace("delivery forwarded", "deliveryId", envelope.DeliveryID, "status", resp.StatusCode)
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return webhook.Response{}, nil
	}

	message := fmt.Sprintf("the forward endpoint answered with status %d", resp.StatusCode)
	var respBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err == nil {
		if msg, ok := respBody["message"].(string); ok && msg != "" {
			message = msg
		}
	}

	return webhook.Response{}, upstreamError(message, fmt.Errorf("unexpected status code %d", resp.StatusCode))
}

func upstreamError(message string, err error) error {
	return webhook.DispatchError(http.StatusBadGateway, message, fmt.Errorf("%w: %w", ErrForward, err))
}
