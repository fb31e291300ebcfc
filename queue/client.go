package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Client enqueues background work. A nil-redis configuration leaves the
// client disabled; enqueue calls then become no-ops so embedders without
// redis lose nothing but asynchrony.
type Client struct {
	enabled bool
	client  *asynq.Client
	logger  *zap.Logger
}

type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	if cfg == nil || cfg.RedisAddr == "" {
		return &Client{enabled: false, logger: logger}
	}
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Client{enabled: true, client: client, logger: logger}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// EnqueueWebhookDelivery schedules a delivery retry. delay of zero means
// process as soon as a worker is free.
func (c *Client) EnqueueWebhookDelivery(deliveryID uint, delay time.Duration) error {
	if !c.enabled {
		return nil
	}
	task, err := NewWebhookDeliveryTask(deliveryID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(0)} // retry policy lives in the delivery row
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook delivery %d: %w", deliveryID, err)
	}
	c.logger.Debug("enqueued webhook delivery",
		zap.Uint("deliveryID", deliveryID),
		zap.String("taskID", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}

func (c *Client) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}
