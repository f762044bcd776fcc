// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mia-platform/webhookd/internal/dispatch"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var _ dispatch.Handler = &writerHandler{}

type writerHandler struct {
	writer io.Writer

	lock sync.Mutex
}

func NewHandler(w io.Writer) dispatch.Handler {
	return &writerHandler{
		writer: w,
	}
}

func (h *writerHandler) Handle(_ context.Context, delivery webhook.Delivery) (webhook.Response, error) {
	builder := new(strings.Builder)

	builder.WriteString("Received webhook:\n")
	builder.WriteString("\tReceiver: " + delivery.Receiver + "\n")
	if delivery.ID != "" {
		builder.WriteString("\tInstance: " + delivery.ID + "\n")
	}
	builder.WriteString("\tActions: " + strings.Join(delivery.Actions, ", ") + "\n")
	builder.WriteString("\tReceived At: " + delivery.ReceivedAt.Format(time.RFC3339) + "\n")
	builder.WriteString("\tPayload: ")

	encoder := json.NewEncoder(builder)
	encoder.SetIndent("\t", "\t")
	if err := encoder.Encode(delivery.Payload); err != nil {
		return webhook.Response{}, err
	}
	builder.WriteString("\n")

	h.lock.Lock()
	defer h.lock.Unlock()
	fmt.Fprint(h.writer, builder.String())
	return webhook.Response{}, nil
}
