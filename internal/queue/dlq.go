package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const (
	DeadLetterQueueName    = "export_jobs_dlq"
	DeadLetterExchangeName = "export_dlq"
	RetryQueueName         = "export_jobs_retry"
	DefaultMaxRetries      = 3

	retryHeader    = "x-retry-count"
	reasonHeader   = "x-failure-reason"
	failedAtHeader = "x-failed-at"
)

// SetupDeadLetterQueue sets up the dead letter queue infrastructure
func (q *Queue) SetupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Expired retry messages fall back into the export queue
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": ExportQueueName,
	}

	_, err = q.channel.QueueDeclare(
		RetryQueueName,
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	return nil
}

// PublishToRetryQueue schedules another attempt of a failed export, or moves it
// to the dead letter queue once retries are exhausted
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.ExportJob, attempt int, reason string) error {
	if attempt >= q.maxRetries {
		return q.PublishToDeadLetterQueue(ctx, job, fmt.Sprintf("max retries exceeded: %s", reason))
	}

	delay := calculateBackoffDelay(attempt)
	headers := amqp.Table{
		retryHeader:  int32(attempt + 1),
		reasonHeader: reason,
	}

	if err := q.publish(ctx, "", RetryQueueName, job, headers, fmt.Sprintf("%d", delay.Milliseconds())); err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	log.Info().
		Str("job_id", job.ID).
		Int("attempt", attempt+1).
		Dur("delay", delay).
		Msg("Export queued for retry")
	return nil
}

// PublishToDeadLetterQueue publishes a failed export to the dead letter queue
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.ExportJob, reason string) error {
	headers := amqp.Table{
		reasonHeader:   reason,
		failedAtHeader: time.Now().Format(time.RFC3339),
	}

	if err := q.publish(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, headers, ""); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	log.Warn().Str("job_id", job.ID).Str("reason", reason).Msg("Export moved to dead letter queue")
	return nil
}

// ConsumeDLQ consumes messages from the dead letter queue for manual processing
func (q *Queue) ConsumeDLQ(ctx context.Context, handler func(*models.ExportJob, string) error) error {
	msgs, err := q.channel.Consume(
		DeadLetterQueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register DLQ consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var job models.ExportJob
				if err := json.Unmarshal(msg.Body, &job); err != nil {
					msg.Nack(false, false)
					continue
				}

				reason, _ := msg.Headers[reasonHeader].(string)
				if err := handler(&job, reason); err != nil {
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// calculateBackoffDelay: 30s, 1m, 2m, 4m ... capped at 30 minutes
func calculateBackoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 10 {
		retryCount = 10
	}
	delay := 30 * time.Second * (1 << retryCount)

	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}

	return delay
}

// retryCount reads the attempt counter; brokers may hand integers back in any width
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	default:
		return 0
	}
}
