package serviceimpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PayRam/go-affiliate/conditions"
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/response"
	"github.com/PayRam/go-affiliate/service"
	"github.com/PayRam/go-affiliate/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// Response bodies are truncated before logging; endpoints can return
	// anything and the log table is not a payload store.
	maxLoggedResponseBytes = 4096

	retryBackoffBase = time.Minute
)

type webhookService struct {
	DB     *gorm.DB
	client service.HTTPDoer
	logger *zap.Logger
}

func NewWebhookService(db *gorm.DB, client service.HTTPDoer, logger *zap.Logger) *webhookService {
	return &webhookService{DB: db, client: client, logger: logger}
}

func (s *webhookService) CreateWebhook(project string, req request.CreateWebhookRequest) (*models.Webhook, error) {
	if len(req.Events) == 0 {
		return nil, fmt.Errorf("webhook must subscribe to at least one event type")
	}
	for _, t := range req.Transformations {
		if err := validateTransformation(t); err != nil {
			return nil, err
		}
	}

	maxAttempts := 3
	if req.MaxAttempts != nil {
		if *req.MaxAttempts < 1 {
			return nil, fmt.Errorf("maxAttempts must be at least 1")
		}
		maxAttempts = *req.MaxAttempts
	}

	webhook := &models.Webhook{
		Project:     project,
		Name:        req.Name,
		URL:         req.URL,
		Status:      models.WebhookStatusActive,
		MaxAttempts: maxAttempts,
	}

	var err error
	if webhook.Events, err = models.EncodeJSONColumn(req.Events); err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}
	if len(req.Transformations) > 0 {
		if webhook.Transformations, err = models.EncodeJSONColumn(req.Transformations); err != nil {
			return nil, fmt.Errorf("failed to encode transformations: %w", err)
		}
	}
	if len(req.Filters) > 0 {
		if webhook.Filters, err = models.EncodeJSONColumn(req.Filters); err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
	}

	if err := s.DB.Create(webhook).Error; err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	return webhook, nil
}

func validateTransformation(t models.Transformation) error {
	switch t.Type {
	case models.TransformRenameField:
		if t.Field == "" || t.NewName == "" {
			return fmt.Errorf("RENAME_FIELD requires field and newName")
		}
	case models.TransformAddField:
		if t.Field == "" {
			return fmt.Errorf("ADD_FIELD requires field")
		}
	case models.TransformRemoveField:
		if t.Field == "" {
			return fmt.Errorf("REMOVE_FIELD requires field")
		}
	case models.TransformFormatField:
		switch t.Format {
		case models.FormatUppercase, models.FormatLowercase, models.FormatDateISO, models.FormatCurrency:
		default:
			return fmt.Errorf("FORMAT_FIELD has unknown format: %s", t.Format)
		}
		if t.Field == "" {
			return fmt.Errorf("FORMAT_FIELD requires field")
		}
	case models.TransformCalculateField:
		if t.Field == "" || t.Formula == "" {
			return fmt.Errorf("CALCULATE_FIELD requires field and formula")
		}
		if strings.ContainsAny(stripPlaceholders(t.Formula), "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_") {
			return fmt.Errorf("formula %q: %w", t.Formula, service.ErrUnsafeFormula)
		}
	default:
		return fmt.Errorf("unknown transformation type: %s", t.Type)
	}
	return nil
}

func stripPlaceholders(formula string) string {
	return placeholderPattern.ReplaceAllString(formula, "0")
}

func (s *webhookService) GetWebhooks(req request.GetWebhookRequest) ([]models.Webhook, int64, error) {
	var webhooks []models.Webhook
	var count int64

	query := s.DB.Model(&models.Webhook{})

	query = request.ApplyGetWebhookRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count webhooks: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&webhooks).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch webhooks: %w", err)
	}

	return webhooks, count, nil
}

func (s *webhookService) UpdateWebhookStatus(project string, webhookID uint, newStatus string) (*models.Webhook, error) {
	var webhook models.Webhook

	if newStatus != models.WebhookStatusActive && newStatus != models.WebhookStatusDisabled {
		return nil, fmt.Errorf("invalid new status: must be 'active' or 'disabled'")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND id = ?", project, webhookID).
			First(&webhook).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("webhook %d not found for project %s", webhookID, project)
			}
			return fmt.Errorf("failed to fetch webhook: %w", err)
		}

		if webhook.Status == newStatus {
			return fmt.Errorf("webhook is already %s", newStatus)
		}

		webhook.Status = newStatus

		if err := tx.Save(&webhook).Error; err != nil {
			return fmt.Errorf("failed to update webhook status: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &webhook, nil
}

// Deliver runs the full pipeline for one event: transform, filter, ship.
// The delivery row is created before any attempt so an operator can
// always see what happened to an event. Transport failures are recorded
// on the row and in the log, never returned as errors.
func (s *webhookService) Deliver(project string, webhookID uint, event request.EventPayload) (*response.DeliveryResult, error) {
	var webhook models.Webhook
	if err := s.DB.Where("project = ? AND id = ?", project, webhookID).First(&webhook).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("webhook %d not found for project %s", webhookID, project)
		}
		return nil, fmt.Errorf("failed to fetch webhook: %w", err)
	}
	if webhook.Status != models.WebhookStatusActive {
		return nil, fmt.Errorf("webhook %d: %w", webhookID, service.ErrWebhookInactive)
	}

	events, err := webhook.SubscribedEvents()
	if err != nil {
		return nil, err
	}
	subscribed := false
	for _, e := range events {
		if e == event.EventType {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return nil, fmt.Errorf("webhook %d does not subscribe to %s: %w", webhookID, event.EventType, service.ErrEventNotSubscribed)
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	delivery := &models.WebhookDelivery{
		Project:   project,
		WebhookID: webhook.ID,
		EventID:   eventID,
		EventType: event.EventType,
		Status:    models.DeliveryStatusPending,
	}
	if err := s.DB.Create(delivery).Error; err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	payload, err := s.transformPayload(&webhook, event.Data)
	if err != nil {
		// Configuration problem, not a transport one: retrying would
		// fail identically, so the delivery is exhausted immediately.
		msg := err.Error()
		s.DB.Model(delivery).UpdateColumns(map[string]interface{}{
			"status":     models.DeliveryStatusExhausted,
			"attempts":   1,
			"last_error": msg,
		})
		s.logAttempt(delivery, &webhook, 1, "failed", nil, nil, &msg, 0)
		return nil, err
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	delivery.Payload = string(encoded)

	filtered, err := s.filteredOut(&webhook, payload)
	if err != nil {
		return nil, err
	}
	if filtered {
		if err := s.DB.Model(delivery).UpdateColumns(map[string]interface{}{
			"status":  models.DeliveryStatusFiltered,
			"payload": delivery.Payload,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to mark delivery filtered: %w", err)
		}
		s.logAttempt(delivery, &webhook, 0, "filtered", nil, nil, nil, 0)
		return &response.DeliveryResult{DeliveryID: delivery.ID, Outcome: "filtered"}, nil
	}

	if err := s.DB.Model(delivery).UpdateColumn("payload", delivery.Payload).Error; err != nil {
		return nil, fmt.Errorf("failed to persist delivery payload: %w", err)
	}

	return s.attempt(delivery, &webhook)
}

// Retry re-ships an existing failed delivery using the stored transformed
// payload. The pipeline stages are not re-run; what was built at event
// time is what goes out.
func (s *webhookService) Retry(deliveryID uint) (*response.DeliveryResult, error) {
	var delivery models.WebhookDelivery
	if err := s.DB.First(&delivery, deliveryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("delivery %d not found", deliveryID)
		}
		return nil, fmt.Errorf("failed to fetch delivery: %w", err)
	}

	switch delivery.Status {
	case models.DeliveryStatusPending, models.DeliveryStatusFailed:
	default:
		return nil, fmt.Errorf("delivery %d is %s and cannot be retried", deliveryID, delivery.Status)
	}

	var webhook models.Webhook
	if err := s.DB.First(&webhook, delivery.WebhookID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch webhook %d: %w", delivery.WebhookID, err)
	}
	if webhook.Status != models.WebhookStatusActive {
		return nil, fmt.Errorf("webhook %d: %w", webhook.ID, service.ErrWebhookInactive)
	}

	return s.attempt(&delivery, &webhook)
}

// attempt ships the delivery payload once and records the outcome.
func (s *webhookService) attempt(delivery *models.WebhookDelivery, webhook *models.Webhook) (*response.DeliveryResult, error) {
	attemptNo := delivery.Attempts + 1

	httpReq, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader([]byte(delivery.Payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Affiliate-Event-Id", delivery.EventID)
	httpReq.Header.Set("X-Affiliate-Event-Type", delivery.EventType)
	httpReq.Header.Set("X-Affiliate-Delivery-Id", fmt.Sprintf("%d", delivery.ID))
	httpReq.Header.Set("X-Affiliate-Attempt", fmt.Sprintf("%d", attemptNo))

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		msg := fmt.Sprintf("%s: %s", service.ErrDeliveryTransport.Message, err)
		return s.recordFailure(delivery, webhook, attemptNo, nil, nil, msg, duration)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedResponseBytes))
	bodyStr := string(body)
	statusCode := resp.StatusCode

	if statusCode >= 200 && statusCode < 300 {
		if err := s.DB.Model(delivery).UpdateColumns(map[string]interface{}{
			"status":          models.DeliveryStatusDelivered,
			"attempts":        attemptNo,
			"next_attempt_at": nil,
			"last_error":      nil,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to mark delivery delivered: %w", err)
		}
		s.logAttempt(delivery, webhook, attemptNo, "delivered", &statusCode, &bodyStr, nil, duration)
		s.logger.Info("webhook delivered",
			zap.Uint("deliveryID", delivery.ID),
			zap.Uint("webhookID", webhook.ID),
			zap.Int("statusCode", statusCode),
			zap.Int("attempt", attemptNo),
		)
		return &response.DeliveryResult{
			DeliveryID: delivery.ID,
			Outcome:    "delivered",
			StatusCode: &statusCode,
			DurationMs: duration,
		}, nil
	}

	msg := fmt.Sprintf("endpoint returned status %d", statusCode)
	return s.recordFailure(delivery, webhook, attemptNo, &statusCode, &bodyStr, msg, duration)
}

func (s *webhookService) recordFailure(delivery *models.WebhookDelivery, webhook *models.Webhook, attemptNo int, statusCode *int, body *string, msg string, duration int64) (*response.DeliveryResult, error) {
	status := models.DeliveryStatusFailed
	var nextAttempt *time.Time
	if attemptNo >= webhook.MaxAttempts {
		status = models.DeliveryStatusExhausted
	} else {
		// Exponential backoff: 1m, 2m, 4m, ...
		at := time.Now().Add(retryBackoffBase << (attemptNo - 1))
		nextAttempt = &at
	}

	if err := s.DB.Model(delivery).UpdateColumns(map[string]interface{}{
		"status":          status,
		"attempts":        attemptNo,
		"next_attempt_at": nextAttempt,
		"last_error":      msg,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to record delivery failure: %w", err)
	}
	s.logAttempt(delivery, webhook, attemptNo, "failed", statusCode, body, &msg, duration)

	s.logger.Warn("webhook delivery failed",
		zap.Uint("deliveryID", delivery.ID),
		zap.Uint("webhookID", webhook.ID),
		zap.Int("attempt", attemptNo),
		zap.String("status", status),
		zap.String("error", msg),
	)

	return &response.DeliveryResult{
		DeliveryID: delivery.ID,
		Outcome:    "failed",
		StatusCode: statusCode,
		DurationMs: duration,
		Error:      &msg,
	}, nil
}

func (s *webhookService) logAttempt(delivery *models.WebhookDelivery, webhook *models.Webhook, attemptNo int, outcome string, statusCode *int, body *string, errMsg *string, duration int64) {
	log := &models.WebhookDeliveryLog{
		DeliveryID:   delivery.ID,
		WebhookID:    webhook.ID,
		Attempt:      attemptNo,
		Outcome:      outcome,
		StatusCode:   statusCode,
		ResponseBody: body,
		ErrorMessage: errMsg,
		DurationMs:   duration,
	}
	if err := s.DB.Create(log).Error; err != nil {
		s.logger.Error("failed to write delivery log", zap.Uint("deliveryID", delivery.ID), zap.Error(err))
	}
}

func (s *webhookService) GetDeliveryLogs(req request.GetDeliveryLogRequest) ([]models.WebhookDeliveryLog, int64, error) {
	var logs []models.WebhookDeliveryLog
	var count int64

	query := s.DB.Model(&models.WebhookDeliveryLog{})

	query = request.ApplyGetDeliveryLogRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count delivery logs: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch delivery logs: %w", err)
	}

	return logs, count, nil
}

// transformPayload applies the webhook's transformations in order to a
// deep copy of the event data. The original event is never mutated.
func (s *webhookService) transformPayload(webhook *models.Webhook, data map[string]interface{}) (map[string]interface{}, error) {
	transforms, err := webhook.TransformationList()
	if err != nil {
		return nil, err
	}

	payload := deepCopyMap(data)
	if payload == nil {
		payload = map[string]interface{}{}
	}

	for _, t := range transforms {
		switch t.Type {
		case models.TransformRenameField:
			if value, ok := payload[t.Field]; ok {
				delete(payload, t.Field)
				payload[t.NewName] = value
			}
		case models.TransformAddField:
			payload[t.Field] = t.Value
		case models.TransformRemoveField:
			delete(payload, t.Field)
		case models.TransformFormatField:
			if value, ok := payload[t.Field]; ok {
				formatted, err := formatValue(value, t.Format)
				if err != nil {
					return nil, fmt.Errorf("failed to format field %s: %w", t.Field, err)
				}
				payload[t.Field] = formatted
			}
		case models.TransformCalculateField:
			result, err := evalFormula(t.Formula, payload)
			if err != nil {
				return nil, fmt.Errorf("failed to calculate field %s: %w", t.Field, err)
			}
			payload[t.Field] = result.InexactFloat64()
		default:
			return nil, fmt.Errorf("unknown transformation type: %s", t.Type)
		}
	}

	return payload, nil
}

func formatValue(value interface{}, format string) (interface{}, error) {
	switch format {
	case models.FormatUppercase:
		return strings.ToUpper(utils.Stringify(value)), nil
	case models.FormatLowercase:
		return strings.ToLower(utils.Stringify(value)), nil
	case models.FormatDateISO:
		t, err := coerceTime(value)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(time.RFC3339), nil
	case models.FormatCurrency:
		num, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("value %v is not numeric", value)
		}
		return num.StringFixed(2), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func coerceTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", v)
	case float64:
		return time.Unix(int64(v), 0), nil
	case int64:
		return time.Unix(v, 0), nil
	default:
		return time.Time{}, fmt.Errorf("value %v is not a date", value)
	}
}

// filteredOut reports whether any filter rejects the transformed payload.
// Filters run after transforms so they see the payload as it would ship.
func (s *webhookService) filteredOut(webhook *models.Webhook, payload map[string]interface{}) (bool, error) {
	filters, err := webhook.FilterList()
	if err != nil {
		return false, err
	}
	for _, f := range filters {
		matched := conditions.Matches(payload, f.Condition)
		if f.Negate {
			matched = !matched
		}
		if !matched {
			return true, nil
		}
	}
	return false, nil
}

func deepCopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case map[string]interface{}:
			dst[k] = deepCopyMap(val)
		case []interface{}:
			copied := make([]interface{}, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]interface{}); ok {
					copied[i] = deepCopyMap(m)
				} else {
					copied[i] = item
				}
			}
			dst[k] = copied
		default:
			dst[k] = v
		}
	}
	return dst
}
