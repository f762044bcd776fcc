// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

const badJSONMessage = "the WebHook request must contain an entity body formatted as JSON"

var _ PayloadParser = ParseJSON

// ParseJSON decodes body into a generic JSON tree. Numbers are kept as json.Number so the
// document can be serialized again without losing precision.
func ParseJSON(body []byte) (Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, NewError(KindBadBody, badJSONMessage+": the body is empty")
	}

	if !utf8.Valid(body) {
		return nil, NewError(KindBadBody, badJSONMessage+": the body is not valid UTF-8")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload Payload
	if err := decoder.Decode(&payload); err != nil {
		return nil, WrapError(KindBadBody, badJSONMessage, err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, NewError(KindBadBody, badJSONMessage+": unexpected data after the JSON document")
	}

	return payload, nil
}
