package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/mq"
)

// ReceiveWebhook ставит внешний вызов webhook-триггера в очередь воркера.
//
// Тело разбирается как JSON; если это не JSON, передаётся строкой.
// Заголовки и query берутся первым значением.
// POST /api/v1/webhooks/{flowId}/{nodeId}
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhooks == nil {
		Unavailable(w, "webhook queue is not configured")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		BadRequest(w, "failed to read body")
		return
	}

	var body any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = string(raw)
		}
	}

	payload := mq.WebhookReceivedPayload{
		FlowID: r.PathValue("flowId"),
		NodeID: r.PathValue("nodeId"),
		Delivery: executor.WebhookDelivery{
			Body:    body,
			Headers: firstValues(r.Header),
			Query:   firstValues(r.URL.Query()),
		},
	}
	// Токен пользователя в очередь не попадает.
	delete(payload.Delivery.Headers, "Authorization")

	if err := h.webhooks.PublishWebhookReceived(r.Context(), payload); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: WebhookAccepted{
		FlowID: payload.FlowID,
		NodeID: payload.NodeID,
	}})
}

func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
