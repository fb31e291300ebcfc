package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PayRam/go-affiliate/service"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes queued webhook deliveries. Run blocks; callers start it
// in a goroutine and stop it via Shutdown.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	webhooks service.WebhookService
	logger   *zap.Logger
}

func NewWorker(cfg *Config, webhooks service.WebhookService, logger *zap.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{Concurrency: 10},
	)

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		webhooks: webhooks,
		logger:   logger,
	}
	w.mux.HandleFunc(TypeWebhookDelivery, w.handleWebhookDelivery)
	return w
}

func (w *Worker) handleWebhookDelivery(ctx context.Context, task *asynq.Task) error {
	var payload WebhookDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed webhook delivery payload: %w", err)
	}

	result, err := w.webhooks.Retry(payload.DeliveryID)
	if err != nil {
		// Terminal states are not retryable; swallowing here keeps the
		// queue from looping on deliveries the row already settled.
		w.logger.Warn("queued delivery retry failed",
			zap.Uint("deliveryID", payload.DeliveryID),
			zap.Error(err),
		)
		return nil
	}

	w.logger.Info("queued delivery processed",
		zap.Uint("deliveryID", payload.DeliveryID),
		zap.String("outcome", result.Outcome),
	)
	return nil
}

func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
