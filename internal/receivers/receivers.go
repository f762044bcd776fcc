// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package receivers

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/mia-platform/webhookd/internal/receivers/azurealert"
	"github.com/mia-platform/webhookd/internal/receivers/eventgrid"
	"github.com/mia-platform/webhookd/internal/receivers/kudu"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var (
	// ErrUnknownReceiver is returned when a receiver name is not part of the registry.
	ErrUnknownReceiver = errors.New("unknown receiver")
	// ErrInvalidReceiver is returned when a receiver cannot be added to a registry.
	ErrInvalidReceiver = errors.New("invalid receiver")
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9]+$`)

// Receiver is an entry of the registry.
type Receiver struct {
	Name        string
	Description string
	Extractor   webhook.ActionExtractor
}

// Registry is the set of receiver variants the service knows about, keyed by name.
type Registry struct {
	receivers map[string]Receiver
}

// NewRegistry returns a Registry containing receivers. Names must be unique lowercase tokens.
func NewRegistry(receivers ...Receiver) (*Registry, error) {
	registry := &Registry{receivers: make(map[string]Receiver, len(receivers))}
	for _, receiver := range receivers {
		switch {
		case !nameRegexp.MatchString(receiver.Name):
			return nil, fmt.Errorf("%w: name %q must be a lowercase alphanumeric token", ErrInvalidReceiver, receiver.Name)
		case receiver.Extractor == nil:
			return nil, fmt.Errorf("%w: %q has no action extractor", ErrInvalidReceiver, receiver.Name)
		}

		if _, found := registry.receivers[receiver.Name]; found {
			return nil, fmt.Errorf("%w: %q is registered twice", ErrInvalidReceiver, receiver.Name)
		}
		registry.receivers[receiver.Name] = receiver
	}

	return registry, nil
}

// Default returns the registry with every built-in receiver.
func Default() *Registry {
	registry, err := NewRegistry(
		Receiver{Name: azurealert.Name, Description: azurealert.Description, Extractor: azurealert.Extractor()},
		Receiver{Name: eventgrid.Name, Description: eventgrid.Description, Extractor: eventgrid.Extractor()},
		Receiver{Name: kudu.Name, Description: kudu.Description, Extractor: kudu.Extractor()},
	)
	if err != nil {
		panic(err)
	}

	return registry
}

// Names returns the sorted names of the registered receivers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.receivers))
	for name := range r.receivers {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// Get returns the action extractor registered under name.
func (r *Registry) Get(name string) (webhook.ActionExtractor, error) {
	receiver, found := r.receivers[name]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReceiver, name)
	}

	return receiver.Extractor, nil
}

// Description returns the description of the receiver registered under name, or an empty
// string if name is unknown.
func (r *Registry) Description(name string) string {
	return r.receivers[name].Description
}
