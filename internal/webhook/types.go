// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	// CodeParameter is the query parameter carrying the receiver credential.
	CodeParameter = "code"

	// MinSecretLength is the minimum accepted length for a configured secret.
	MinSecretLength = 32
	// MaxSecretLength is the maximum accepted length for a configured secret.
	MaxSecretLength = 128
)

// Identity addresses a receiver instance. Name is fixed by the receiver variant, ID selects
// one of the secrets configured for it; the empty ID is the default instance.
type Identity struct {
	Name string
	ID   string
}

func (i Identity) String() string {
	if i.ID == "" {
		return i.Name
	}
	return i.Name + "/" + i.ID
}

// Request is a read-only view of the inbound HTTP request.
type Request struct {
	Method string
	// Secure reports whether the request reached us over an encrypted transport.
	Secure bool
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Payload is a decoded JSON document: map[string]any, []any, string, json.Number, bool or nil.
type Payload = any

// Delivery is what a Dispatcher receives for every authenticated and parsed request.
type Delivery struct {
	Receiver   string
	ID         string
	Actions    []string
	Payload    Payload
	Header     http.Header
	ReceivedAt time.Time
}

// Response is the single HTTP response produced for a request. A nil Body means no content.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
}

// IsZero reports whether r has not been set.
func (r Response) IsZero() bool {
	return r.StatusCode == 0
}

// SecretStore returns the secrets configured for a receiver instance.
type SecretStore interface {
	Secrets(ctx context.Context, identity Identity) ([]string, error)
}

// Authenticator validates the credential of an inbound request.
type Authenticator interface {
	Authenticate(ctx context.Context, identity Identity, req Request) error
}

// ActionExtractor computes the actions contained in a payload. It is the only piece each
// receiver variant has to provide.
type ActionExtractor interface {
	Extract(ctx context.Context, identity Identity, req Request, payload Payload) ([]string, error)
}

// ExtractorFunc adapts a function to the ActionExtractor interface.
type ExtractorFunc func(ctx context.Context, identity Identity, req Request, payload Payload) ([]string, error)

// Extract implements ActionExtractor.
func (f ExtractorFunc) Extract(ctx context.Context, identity Identity, req Request, payload Payload) ([]string, error) {
	return f(ctx, identity, req, payload)
}

// Dispatcher hands a delivery to the registered handlers and returns their outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery Delivery) (Response, error)
}

// PayloadParser decodes a raw request body.
type PayloadParser func(body []byte) (Payload, error)
