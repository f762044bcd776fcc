// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
)

var _ Authenticator = &CodeAuthenticator{}

// CodeAuthenticator checks the secret passed in the code query parameter against the secrets
// configured for the addressed receiver instance.
type CodeAuthenticator struct {
	Store SecretStore
}

// NewCodeAuthenticator returns a CodeAuthenticator reading secrets from store.
func NewCodeAuthenticator(store SecretStore) *CodeAuthenticator {
	return &CodeAuthenticator{Store: store}
}

// Authenticate implements Authenticator. The transport check always runs first, so a plaintext
// request is rejected before any secret is loaded or compared.
func (a *CodeAuthenticator) Authenticate(ctx context.Context, identity Identity, req Request) error {
	if !req.Secure {
		return NewError(KindInsecureTransport, fmt.Sprintf("the WebHook receiver '%s' requires HTTPS in order to be secure, please register a WebHook URI of type 'https'", identity.Name))
	}

	codes := req.Query[CodeParameter]
	if len(codes) != 1 {
		return NewError(KindMissingOrAmbiguousCredential, fmt.Sprintf("the WebHook verification request must contain exactly one '%s' query parameter", CodeParameter))
	}
	code := codes[0]

	if a.Store == nil {
		return NewError(KindNotConfigured, mismatchMessage())
	}

	secrets, err := a.Store.Secrets(ctx, identity)
	if err != nil {
		return WrapError(KindInternal, "unable to load the WebHook receiver configuration", err)
	}
	if len(secrets) == 0 {
		return NewError(KindNotConfigured, mismatchMessage())
	}

	matched := 0
	for _, secret := range secrets {
		matched |= secretEqual(code, secret)
	}
	if matched != 1 {
		return NewError(KindInvalidCredential, mismatchMessage())
	}

	return nil
}

// ValidSecret reports whether secret has an acceptable length.
func ValidSecret(secret string) bool {
	return len(secret) >= MinSecretLength && len(secret) <= MaxSecretLength
}

// secretEqual returns 1 when code matches secret in constant time. Secrets with an invalid
// length never match.
func secretEqual(code, secret string) int {
	if !ValidSecret(secret) {
		return 0
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(secret))
}

// mismatchMessage is shared by every failure that must not reveal whether the receiver is
// configured.
func mismatchMessage() string {
	return fmt.Sprintf("the '%s' query parameter provided in the HTTP request did not match the expected value", CodeParameter)
}
