// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	// DefaultPrefix is the prefix of the environment variables read by EnvStore.
	DefaultPrefix = "WEBHOOK_RECEIVER_SECRET"

	envSource = "env"
)

var _ webhook.SecretStore = &EnvStore{}

// EnvStore reads secrets from environment variables.
//
// The secrets of the receiver instance (name, id) are looked up first in the variable
// <PREFIX>_<NAME>_<ID>, holding a comma separated list of secrets. If that variable is not set
// the variable <PREFIX>_<NAME> is read: it holds a comma separated list of entries that are
// either a bare secret for the default instance or an id=secret pair. Names and ids are upper
// cased and every character that is not a letter or a digit becomes an underscore.
type EnvStore struct {
	Prefix string

	lookup func(string) (string, bool)
}

// NewEnvStore returns an EnvStore reading the variables starting with prefix.
func NewEnvStore(prefix string) *EnvStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &EnvStore{
		Prefix: prefix,
		lookup: os.LookupEnv,
	}
}

// Secrets implements webhook.SecretStore.
func (s *EnvStore) Secrets(ctx context.Context, identity webhook.Identity) ([]string, error) {
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	receiverVariable := s.Prefix + "_" + envName(identity.Name)
	if identity.ID != "" {
		if value, found := lookup(receiverVariable + "_" + envName(identity.ID)); found {
			return validSecrets(ctx, envSource, identity, splitList(value)), nil
		}
	}

	value, found := lookup(receiverVariable)
	if !found {
		return nil, nil
	}

	return validSecrets(ctx, envSource, identity, entriesFor(identity.ID, value)), nil
}

// entriesFor returns the secrets of id contained in a list of bare secrets and id=secret pairs.
// A bare entry belongs to the default instance. The text before the first '=' is considered an
// id only when it is shorter than a valid secret, so secrets ending with '=' padding are kept whole.
func entriesFor(id, value string) []string {
	id = strings.ToLower(id)

	var secrets []string
	for _, entry := range splitList(value) {
		entryID, secret, found := strings.Cut(entry, "=")
		if !found || len(entryID) >= webhook.MinSecretLength {
			entryID, secret = "", entry
		}

		if strings.ToLower(strings.TrimSpace(entryID)) == id {
			secrets = append(secrets, strings.TrimSpace(secret))
		}
	}

	return secrets
}

func splitList(value string) []string {
	var entries []string
	for entry := range strings.SplitSeq(value, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			entries = append(entries, entry)
		}
	}

	return entries
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
