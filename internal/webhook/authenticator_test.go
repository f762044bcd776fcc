// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/webhook"
	"github.com/mia-platform/webhookd/internal/webhook/fake"
)

const (
	validSecret  = "83699ec7c1d794c0c780e49a5c72972590571fd8"
	otherSecret  = "0123456789abcdef0123456789abcdef0123456789"
	shortSecret  = "tooshort"
	testReceiver = "azurealert"
)

func secureRequest(codes ...string) webhook.Request {
	return webhook.Request{
		Method: "POST",
		Secure: true,
		Query:  url.Values{webhook.CodeParameter: codes},
	}
}

func TestCodeAuthenticator(t *testing.T) {
	t.Parallel()

	defaultIdentity := webhook.Identity{Name: testReceiver}
	instanceIdentity := webhook.Identity{Name: testReceiver, ID: "instance"}
	longSecret := strings.Repeat("a", webhook.MaxSecretLength+1)

	testCases := map[string]struct {
		identity      webhook.Identity
		request       webhook.Request
		secrets       map[webhook.Identity][]string
		storeErr      error
		expectedKind  *webhook.Kind
		expectedCalls int
	}{
		"valid code for default instance": {
			identity:      defaultIdentity,
			request:       secureRequest(validSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedCalls: 1,
		},
		"valid code matching the second secret": {
			identity:      instanceIdentity,
			request:       secureRequest(otherSecret),
			secrets:       map[webhook.Identity][]string{instanceIdentity: {validSecret, otherSecret}},
			expectedCalls: 1,
		},
		"plaintext transport is rejected before loading secrets": {
			identity:      defaultIdentity,
			request:       webhook.Request{Method: "POST", Query: url.Values{webhook.CodeParameter: {validSecret}}},
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedKind:  kindPtr(webhook.KindInsecureTransport),
			expectedCalls: 0,
		},
		"missing code": {
			identity:      defaultIdentity,
			request:       secureRequest(),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedKind:  kindPtr(webhook.KindMissingOrAmbiguousCredential),
			expectedCalls: 0,
		},
		"multiple codes": {
			identity:      defaultIdentity,
			request:       secureRequest(validSecret, validSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedKind:  kindPtr(webhook.KindMissingOrAmbiguousCredential),
			expectedCalls: 0,
		},
		"no secret configured": {
			identity:      instanceIdentity,
			request:       secureRequest(validSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedKind:  kindPtr(webhook.KindNotConfigured),
			expectedCalls: 1,
		},
		"wrong code": {
			identity:      defaultIdentity,
			request:       secureRequest(otherSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {validSecret}},
			expectedKind:  kindPtr(webhook.KindInvalidCredential),
			expectedCalls: 1,
		},
		"short configured secret never matches": {
			identity:      defaultIdentity,
			request:       secureRequest(shortSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {shortSecret}},
			expectedKind:  kindPtr(webhook.KindInvalidCredential),
			expectedCalls: 1,
		},
		"long configured secret never matches": {
			identity:      defaultIdentity,
			request:       secureRequest(longSecret),
			secrets:       map[webhook.Identity][]string{defaultIdentity: {longSecret}},
			expectedKind:  kindPtr(webhook.KindInvalidCredential),
			expectedCalls: 1,
		},
		"store failure is an internal error": {
			identity:      defaultIdentity,
			request:       secureRequest(validSecret),
			storeErr:      assert.AnError,
			expectedKind:  kindPtr(webhook.KindInternal),
			expectedCalls: 1,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := fake.NewSecretStore(t, test.secrets)
			store.Err = test.storeErr
			authenticator := webhook.NewCodeAuthenticator(store)

			err := authenticator.Authenticate(t.Context(), test.identity, test.request)
			assert.Equal(t, test.expectedCalls, store.Calls())
			if test.expectedKind == nil {
				require.NoError(t, err)
				return
			}

			var webhookErr *webhook.Error
			require.ErrorAs(t, err, &webhookErr)
			assert.Equal(t, *test.expectedKind, webhookErr.Kind)
			if test.storeErr != nil {
				assert.ErrorIs(t, err, test.storeErr)
			}
		})
	}
}

func TestCodeAuthenticatorWithoutStore(t *testing.T) {
	t.Parallel()

	err := (&webhook.CodeAuthenticator{}).Authenticate(t.Context(), webhook.Identity{Name: testReceiver}, secureRequest(validSecret))
	assert.ErrorIs(t, err, webhook.NewError(webhook.KindNotConfigured, ""))
}

func TestCodeAuthenticatorFailuresShareMessage(t *testing.T) {
	t.Parallel()

	identity := webhook.Identity{Name: testReceiver}
	store := fake.NewSecretStore(t, map[webhook.Identity][]string{identity: {validSecret}})

	authErrors := map[string]error{
		"without store":  (&webhook.CodeAuthenticator{}).Authenticate(t.Context(), identity, secureRequest(validSecret)),
		"not configured": webhook.NewCodeAuthenticator(store).Authenticate(t.Context(), webhook.Identity{Name: testReceiver, ID: "missing"}, secureRequest(validSecret)),
		"wrong code":     webhook.NewCodeAuthenticator(store).Authenticate(t.Context(), identity, secureRequest(otherSecret)),
	}

	expected := "the 'code' query parameter provided in the HTTP request did not match the expected value"
	for name, err := range authErrors {
		response := webhook.ErrorResponse(err)
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode, name)
		assert.Equal(t, expected, response.Body.(map[string]any)["message"], name)
		assert.NotContains(t, err.Error(), testReceiver, name)
	}
}

func TestValidSecret(t *testing.T) {
	t.Parallel()

	assert.False(t, webhook.ValidSecret(strings.Repeat("x", webhook.MinSecretLength-1)))
	assert.True(t, webhook.ValidSecret(strings.Repeat("x", webhook.MinSecretLength)))
	assert.True(t, webhook.ValidSecret(strings.Repeat("x", webhook.MaxSecretLength)))
	assert.False(t, webhook.ValidSecret(strings.Repeat("x", webhook.MaxSecretLength+1)))
}

func kindPtr(kind webhook.Kind) *webhook.Kind {
	return &kind
}
