package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeWebhookDelivery = "affiliate:webhook_delivery"

// WebhookDeliveryPayload carries only the row id; the handler re-reads
// the delivery so state is never stale at processing time.
type WebhookDeliveryPayload struct {
	DeliveryID uint `json:"deliveryID"`
}

func NewWebhookDeliveryTask(deliveryID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(WebhookDeliveryPayload{DeliveryID: deliveryID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook delivery payload: %w", err)
	}
	return asynq.NewTask(TypeWebhookDelivery, payload), nil
}
