package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/reelforge/reelforge-backend/pkg/config"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// Client enqueues generation work onto the shared queue.
type Client struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
	logg    *logger.Logger
}

// NewClient connects the queue producer to Redis.
func NewClient(redisCfg config.RedisConfig, genCfg config.GenerationConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if genCfg.Queue == "" {
		return nil, fmt.Errorf("generation queue name required")
	}

	opt, err := asynq.ParseRedisURI(redisCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url for queue: %w", err)
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  genCfg.Queue,
		// the lock TTL bounds a run, so it bounds the task too
		timeout: genCfg.LockTTL,
		logg:    logg,
	}, nil
}

// EnqueueGenerateBatch hands a project's batch run to the worker.
func (c *Client) EnqueueGenerateBatch(ctx context.Context, projectID uuid.UUID, model string, referenceImageURL string, lockOwner string) error {
	task, err := NewGenerateBatchTask(GenerateBatchPayload{
		ProjectID:         projectID.String(),
		Model:             model,
		ReferenceImageURL: referenceImageURL,
		LockOwner:         lockOwner,
	}, c.queue, c.timeout)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", TypeGenerateBatch, err)
	}

	ctx = c.logg.WithProjectID(ctx, projectID.String())
	c.logg.Info(ctx, fmt.Sprintf("generation batch enqueued: task=%s queue=%s", info.ID, info.Queue))
	return nil
}

// Close releases the underlying Redis connections.
func (c *Client) Close() error {
	return c.client.Close()
}
