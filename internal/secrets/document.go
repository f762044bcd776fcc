// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/webhookd/internal/webhook"
)

const (
	defaultInstanceKey = "default"
)

// document is the YAML format shared by the file and blob stores:
//
//	azurealert:
//	  default: <secret>
//	  production:
//	    - <secret>
//	    - <rotated secret>
type document map[string]map[string]secretList

// secretList accepts both a single secret and a sequence of secrets.
type secretList []string

func (l *secretList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return err
		}
		*l = secretList{value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*l = values
		return nil
	default:
		return fmt.Errorf("line %d: a secret must be a string or a list of strings", node.Line)
	}
}

func parseDocument(data []byte) (document, error) {
	doc := make(document)

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return doc, nil
}

// secrets returns the raw values configured for identity. The default instance can be written
// both as the empty key and as "default".
func (d document) secrets(identity webhook.Identity) []string {
	instances, found := d[strings.ToLower(identity.Name)]
	if !found {
		return nil
	}

	if identity.ID != "" {
		return instances[identity.ID]
	}

	if values, found := instances[""]; found {
		return values
	}
	return instances[defaultInstanceKey]
}
