package queue_test

import (
	"encoding/json"
	"testing"

	"github.com/PayRam/go-affiliate/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWebhookDeliveryTask(t *testing.T) {
	task, err := queue.NewWebhookDeliveryTask(42)
	require.NoError(t, err)
	assert.Equal(t, queue.TypeWebhookDelivery, task.Type())

	var payload queue.WebhookDeliveryPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(42), payload.DeliveryID)
}

func TestDisabledClientIsNoOp(t *testing.T) {
	client := queue.NewClient(nil, zap.NewNop())
	assert.False(t, client.Enabled())

	// Without redis configured every enqueue is a silent no-op.
	assert.NoError(t, client.EnqueueWebhookDelivery(1, 0))
	assert.NoError(t, client.Close())

	client = queue.NewClient(&queue.Config{}, zap.NewNop())
	assert.False(t, client.Enabled(), "empty redis address leaves the client disabled")
}
