package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const (
	ExportQueueName = "export_jobs"
	ExchangeName    = "export"
)

// Handler processes one export job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *models.ExportJob) error

// Queue provides message queue operations
type Queue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	maxRetries int
}

// New creates a new queue client and declares the export topology
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, maxRetries: cfg.MaxRetries}
	if q.maxRetries <= 0 {
		q.maxRetries = DefaultMaxRetries
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		ExportQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		ExportQueueName,
		ExportQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishExport publishes an export job to the queue
func (q *Queue) PublishExport(ctx context.Context, job *models.ExportJob) error {
	return q.publish(ctx, ExchangeName, ExportQueueName, job, amqp.Table{retryHeader: int32(job.RetryCount)}, "")
}

func (q *Queue) publish(ctx context.Context, exchange, key string, job *models.ExportJob, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal export job: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			MessageId:    job.ID,
			Headers:      headers,
			Expiration:   expiration,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish export job: %w", err)
	}

	return nil
}

// ConsumeExports starts consuming export jobs. Jobs are handled one at a time;
// a failed job is acked and republished to the retry queue with backoff until
// it exhausts its retries and lands in the dead letter queue.
func (q *Queue) ConsumeExports(ctx context.Context, handler Handler) error {
	err := q.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		ExportQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
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
				q.deliver(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var job models.ExportJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageId).Msg("Dropping malformed export message")
		msg.Nack(false, false)
		return
	}
	job.RetryCount = retryCount(msg.Headers)

	herr := handler(ctx, &job)
	if herr == nil {
		msg.Ack(false)
		return
	}

	if ctx.Err() != nil {
		// shutting down, let the broker redeliver
		msg.Nack(false, true)
		return
	}

	if err := q.PublishToRetryQueue(ctx, &job, job.RetryCount, herr.Error()); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to schedule export retry")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(ExportQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
