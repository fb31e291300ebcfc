package serviceimpl

import (
	"fmt"
	"time"

	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const retryBatchSize = 100

type retryWorker struct {
	DB       *gorm.DB
	webhooks service.WebhookService
	logger   *zap.Logger
}

func NewRetryWorker(db *gorm.DB, webhooks service.WebhookService, logger *zap.Logger) *retryWorker {
	return &retryWorker{DB: db, webhooks: webhooks, logger: logger}
}

// ProcessPendingDeliveries re-ships every failed delivery whose backoff
// has elapsed. One delivery failing does not stop the sweep; per-row
// errors are logged and the loop continues.
func (w *retryWorker) ProcessPendingDeliveries() error {
	var due []models.WebhookDelivery
	err := w.DB.
		Where("status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?",
			models.DeliveryStatusFailed, time.Now()).
		Order("next_attempt_at ASC").
		Limit(retryBatchSize).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("failed to fetch due deliveries: %w", err)
	}

	for _, delivery := range due {
		if _, err := w.webhooks.Retry(delivery.ID); err != nil {
			w.logger.Warn("delivery retry failed",
				zap.Uint("deliveryID", delivery.ID),
				zap.Uint("webhookID", delivery.WebhookID),
				zap.Error(err),
			)
		}
	}

	return nil
}
