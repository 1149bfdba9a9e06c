// Package queue consumes trigger messages from a Redis list and starts
// event-triggered workflow executions.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/innospot/autoflow/pkg/models"
)

// Executor starts an execution for a trigger message; the engine implements
// it.
type Executor interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, inputData map[string]any, triggeredBy string, triggerType models.TriggerType) (*models.WorkflowExecution, error)
}

// Config connects the consumer to its Redis list.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// triggerMessage is the wire shape pushed onto the list by external systems.
type triggerMessage struct {
	WorkflowID  string         `json:"workflow_id"`
	TriggeredBy string         `json:"triggered_by"`
	Input       map[string]any `json:"input"`
}

// Consumer blocks on BLPOP and hands each message to the engine. Messages
// that fail to start an execution are logged and dropped, not re-queued.
type Consumer struct {
	config   Config
	executor Executor
	client   redis.UniversalClient
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewConsumer(config Config, executor Executor, logger *slog.Logger) (*Consumer, error) {
	if config.Queue == "" {
		return nil, errors.New("queue name is required")
	}

	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	return &Consumer{
		config:   config,
		executor: executor,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "queue_consumer",
			"queue", config.Queue,
		),
	}, nil
}

// Start connects to Redis and launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.config.Addr, "db", c.config.DB)

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var message triggerMessage

	err = json.Unmarshal([]byte(result[1]), &message)
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping malformed trigger message", "error", err)

		return nil
	}

	if message.WorkflowID == "" {
		c.logger.WarnContext(ctx, "Dropping trigger message without workflow_id")

		return nil
	}

	triggeredBy := message.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "queue"
	}

	execution, err := c.executor.ExecuteWorkflow(ctx, message.WorkflowID, message.Input, triggeredBy, models.TriggerEvent)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to start event-triggered execution",
			"workflow_id", message.WorkflowID, "error", err)

		return nil
	}

	c.logger.InfoContext(ctx, "Event-triggered execution enqueued",
		"workflow_id", message.WorkflowID, "execution_id", execution.ID)

	return nil
}

// Stop halts the consume loop and closes the Redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		err := c.client.Close()
		if err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
