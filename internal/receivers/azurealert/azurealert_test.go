// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azurealert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/webhookd/internal/webhook"
)

func TestExtractor(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		body            string
		expectedActions []string
		expectedErr     string
	}{
		"activated alert": {
			body: `{
				"status": "Activated",
				"context": {
					"id": "/subscriptions/s1/resourceGroups/useast/providers/microsoft.insights/alertrules/ruleName1",
					"name": "ruleName1",
					"conditionType": "Metric",
					"timestamp": "2015-08-07T17:05:55.1005302Z"
				}
			}`,
			expectedActions: []string{"ruleName1"},
		},
		"missing context": {
			body:        `{"status": "Resolved"}`,
			expectedErr: "'context.name'",
		},
		"name is not a string": {
			body:        `{"context": {"name": 12}}`,
			expectedErr: "'context.name'",
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			payload, err := webhook.ParseJSON([]byte(test.body))
			require.NoError(t, err)

			actions, err := Extractor().Extract(t.Context(), webhook.Identity{Name: Name}, webhook.Request{}, payload)
			if test.expectedErr != "" {
				require.ErrorIs(t, err, webhook.NewError(webhook.KindBadBody, ""))
				assert.ErrorContains(t, err, test.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expectedActions, actions)
		})
	}
}
