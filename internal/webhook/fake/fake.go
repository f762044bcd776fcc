// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/webhookd/internal/webhook"
)

var _ webhook.SecretStore = &SecretStore{}
var _ webhook.Dispatcher = &Dispatcher{}

// SecretStore is an in memory webhook.SecretStore counting its lookups.
type SecretStore struct {
	tb testing.TB

	Values map[webhook.Identity][]string
	Err    error

	lock  sync.Mutex
	calls int
}

// NewSecretStore returns a SecretStore serving secrets.
func NewSecretStore(tb testing.TB, secrets map[webhook.Identity][]string) *SecretStore {
	tb.Helper()
	return &SecretStore{
		tb:     tb,
		Values: secrets,
	}
}

// Secrets implements webhook.SecretStore.
func (s *SecretStore) Secrets(_ context.Context, identity webhook.Identity) ([]string, error) {
	s.tb.Helper()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Values[identity], nil
}

// Calls returns how many times Secrets has been invoked.
func (s *SecretStore) Calls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls
}

// Dispatcher records every delivery and answers with Response and Err.
type Dispatcher struct {
	tb testing.TB

	Response webhook.Response
	Err      error

	lock       sync.Mutex
	Deliveries []webhook.Delivery
}

// NewDispatcher returns a Dispatcher accepting every delivery.
func NewDispatcher(tb testing.TB) *Dispatcher {
	tb.Helper()
	return &Dispatcher{tb: tb}
}

// Dispatch implements webhook.Dispatcher.
func (d *Dispatcher) Dispatch(_ context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	d.tb.Helper()

	d.lock.Lock()
	defer d.lock.Unlock()
	d.Deliveries = append(d.Deliveries, delivery)
	return d.Response, d.Err
}

// Calls returns how many deliveries have been dispatched.
func (d *Dispatcher) Calls() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.Deliveries)
}
