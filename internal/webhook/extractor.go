// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"context"
	"strings"
)

// FieldExtractor returns an ActionExtractor reading a single action from the string found at
// path inside the payload, e.g. FieldExtractor("context", "name") reads payload.context.name.
func FieldExtractor(path ...string) ActionExtractor {
	fieldName := strings.Join(path, ".")

	return ExtractorFunc(func(_ context.Context, _ Identity, _ Request, payload Payload) ([]string, error) {
		action, ok := LookupString(payload, path...)
		if !ok || action == "" {
			return nil, BadBody("the WebHook request must contain a '%s' JSON property containing the action name", fieldName)
		}

		return []string{action}, nil
	})
}

// Lookup walks nested JSON objects following path.
func Lookup(payload Payload, path ...string) (any, bool) {
	current := payload
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// LookupString is Lookup restricted to string values.
func LookupString(payload Payload, path ...string) (string, bool) {
	value, ok := Lookup(payload, path...)
	if !ok {
		return "", false
	}

	str, ok := value.(string)
	return str, ok
}
