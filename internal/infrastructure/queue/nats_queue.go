package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// TaskHandler processes one fare-detail task
type TaskHandler func(ctx context.Context, task *entity.FareTask) error

// Connect opens a NATS connection that keeps reconnecting in the background
func Connect(url string, log logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("flightsync"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// NatsQueue publishes fare-detail tasks on a subject and consumes them
// through a queue group
type NatsQueue struct {
	nc      *nats.Conn
	subject string
	logger  logger.Logger
}

// NewNatsQueue creates a task queue on subject
func NewNatsQueue(nc *nats.Conn, subject string, log logger.Logger) *NatsQueue {
	return &NatsQueue{
		nc:      nc,
		subject: subject,
		logger:  log.With("component", "fare_queue", "subject", subject),
	}
}

// Enqueue publishes task and returns without waiting for a consumer
func (q *NatsQueue) Enqueue(ctx context.Context, task *entity.FareTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeTask(task)
	if err != nil {
		return err
	}
	if err := q.nc.Publish(q.subject, data); err != nil {
		return fmt.Errorf("publish task %s: %w", task.ID, err)
	}
	return nil
}

// Subscribe starts consuming tasks in queue group group. Handler errors are
// logged; the handler owns retries.
func (q *NatsQueue) Subscribe(ctx context.Context, group string, handle TaskHandler) (*nats.Subscription, error) {
	sub, err := q.nc.QueueSubscribe(q.subject, group, func(msg *nats.Msg) {
		task, err := DecodeTask(msg.Data)
		if err != nil {
			q.logger.Error("Dropping undecodable task", "error", err, "payload", string(msg.Data))
			return
		}
		if err := handle(ctx, task); err != nil {
			q.logger.Error("Task handler failed", "taskId", task.ID, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", q.subject, err)
	}
	q.logger.Info("Subscribed to fare tasks", "group", group)
	return sub, nil
}

// EncodeTask stamps a missing id and enqueue time and encodes task as JSON
func EncodeTask(task *entity.FareTask) ([]byte, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return data, nil
}

// DecodeTask decodes a task published by EncodeTask
func DecodeTask(data []byte) (*entity.FareTask, error) {
	var task entity.FareTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if task.FlightClassID == 0 {
		return nil, fmt.Errorf("decode task: missing flight class id")
	}
	return &task, nil
}
