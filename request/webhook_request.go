package request

import (
	"github.com/PayRam/go-affiliate/models"
	"gorm.io/gorm"
)

type CreateWebhookRequest struct {
	Name            string                  `json:"name" binding:"required"`
	URL             string                  `json:"url" binding:"required"`
	Events          []string                `json:"events" binding:"required"` // Subscribed event types
	Transformations []models.Transformation `json:"transformations"`
	Filters         []models.PayloadFilter  `json:"filters"`
	MaxAttempts     *int                    `json:"maxAttempts"` // Defaults to 3
}

type GetWebhookRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	Status               *string              `form:"status"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetWebhookRequest(req GetWebhookRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_webhooks.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_webhooks.id = ?", *req.ID)
	}
	if req.Status != nil {
		query = query.Where("affiliate_webhooks.status = ?", *req.Status)
	}
	return query
}

// EventPayload is a domain event offered to a webhook. EventID is
// generated when empty; Data is the payload the pipeline transforms.
type EventPayload struct {
	EventID   string                 `json:"eventID"`
	EventType string                 `json:"eventType" binding:"required"`
	Data      map[string]interface{} `json:"data"`
}

type GetDeliveryLogRequest struct {
	ID                   *uint                `form:"id"`
	DeliveryID           *uint                `form:"deliveryID"`
	WebhookID            *uint                `form:"webhookID"`
	Outcome              *string              `form:"outcome"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetDeliveryLogRequest(req GetDeliveryLogRequest, query *gorm.DB) *gorm.DB {
	if req.ID != nil {
		query = query.Where("affiliate_webhook_delivery_logs.id = ?", *req.ID)
	}
	if req.DeliveryID != nil {
		query = query.Where("affiliate_webhook_delivery_logs.delivery_id = ?", *req.DeliveryID)
	}
	if req.WebhookID != nil {
		query = query.Where("affiliate_webhook_delivery_logs.webhook_id = ?", *req.WebhookID)
	}
	if req.Outcome != nil {
		query = query.Where("affiliate_webhook_delivery_logs.outcome = ?", *req.Outcome)
	}
	return query
}
