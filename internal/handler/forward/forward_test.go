// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package forward

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/info"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var testDelivery = webhook.Delivery{
	Receiver:   "azurealert",
	ID:         "production",
	Actions:    []string{"Activated"},
	Payload:    map[string]any{"context": map[string]any{"name": "Activated"}},
	ReceivedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		config      Config
		expectedErr string
	}{
		"static token": {
			config: Config{URL: "https://example.com/hooks", Token: "token"},
		},
		"client credentials": {
			config: Config{URL: "http://example.com/hooks", ClientID: "id", ClientSecret: "secret", TokenURL: "http://example.com/token"},
		},
		"missing url": {
			config:      Config{},
			expectedErr: "url is required",
		},
		"unsupported scheme": {
			config:      Config{URL: "ftp://example.com"},
			expectedErr: "http or https",
		},
		"client id without secret": {
			config:      Config{URL: "https://example.com", ClientID: "id", TokenURL: "https://example.com/token"},
			expectedErr: "clientSecret is required",
		},
		"client secret without id": {
			config:      Config{URL: "https://example.com", ClientSecret: "secret"},
			expectedErr: "clientId is required",
		},
		"client credentials without token url": {
			config:      Config{URL: "https://example.com", ClientID: "id", ClientSecret: "secret"},
			expectedErr: "tokenUrl is required",
		},
		"token and client credentials": {
			config:      Config{URL: "https://example.com", Token: "token", ClientID: "id", ClientSecret: "secret", TokenURL: "https://example.com/token"},
			expectedErr: "cannot be used together",
		},
		"negative timeout": {
			config:      Config{URL: "https://example.com", Timeout: -time.Second},
			expectedErr: "timeout",
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			handler, err := NewHandler(test.config)
			if test.expectedErr != "" {
				require.ErrorIs(t, err, ErrForward)
				assert.ErrorContains(t, err, test.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, defaultTimeout, handler.client.Timeout)
		})
	}
}

func TestForwardDelivery(t *testing.T) {
	t.Parallel()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hooks", r.URL.Path)
		assert.Equal(t, info.UserAgent(), r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		assert.Equal(t, "custom", r.Header.Get("X-Custom"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, received["deliveryId"], r.Header.Get(DeliveryHeader))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	handler, err := NewHandler(Config{
		URL:     server.URL + "/hooks",
		Token:   "static-token",
		Headers: map[string]string{"X-Custom": "custom"},
	})
	require.NoError(t, err)

	response, err := handler.Handle(t.Context(), testDelivery)
	require.NoError(t, err)
	assert.True(t, response.IsZero())

	deliveryID, ok := received["deliveryId"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(deliveryID)
	require.NoError(t, err)

	delete(received, "deliveryId")
	assert.Equal(t, map[string]any{
		"receiver":   "azurealert",
		"id":         "production",
		"instance":   "azurealert/production",
		"actions":    []any{"Activated"},
		"payload":    map[string]any{"context": map[string]any{"name": "Activated"}},
		"receivedAt": "2024-06-01T12:00:00Z",
	}, received)
}

func TestForwardWithClientCredentials(t *testing.T) {
	t.Parallel()

	tokenRequests := new(atomic.Int32)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokenRequests.Add(1)
			clientID, clientSecret, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", clientID)
			assert.Equal(t, "client-secret", clientSecret)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"issued-token","token_type":"Bearer","expires_in":3600}`))
		case "/hooks":
			assert.Equal(t, "Bearer issued-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	handler, err := NewHandler(Config{
		URL:          server.URL + "/hooks",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/token",
	})
	require.NoError(t, err)

	for range 3 {
		_, err := handler.Handle(t.Context(), testDelivery)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenRequests.Load())
}

func TestForwardFailures(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		status          int
		body            string
		expectedMessage string
	}{
		"error with message": {
			status:          http.StatusInternalServerError,
			body:            `{"message":"database unavailable"}`,
			expectedMessage: "database unavailable",
		},
		"error without body": {
			status:          http.StatusNotFound,
			expectedMessage: "the forward endpoint answered with status 404",
		},
		"redirects are failures": {
			status:          http.StatusNotModified,
			expectedMessage: "the forward endpoint answered with status 304",
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer server.Close()

			handler, err := NewHandler(Config{URL: server.URL})
			require.NoError(t, err)

			_, err = handler.Handle(t.Context(), testDelivery)
			require.ErrorIs(t, err, ErrForward)

			response := webhook.ErrorResponse(err)
			assert.Equal(t, http.StatusBadGateway, response.StatusCode)
			assert.Equal(t, test.expectedMessage, response.Body.(map[string]any)["message"])
		})
	}
}

func TestForwardUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	handler, err := NewHandler(Config{URL: url})
	require.NoError(t, err)

	_, err = handler.Handle(t.Context(), testDelivery)
	require.ErrorIs(t, err, ErrForward)
	assert.Equal(t, http.StatusBadGateway, webhook.ErrorResponse(err).StatusCode)
}
