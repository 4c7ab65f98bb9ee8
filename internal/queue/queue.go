package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/chmielvu/Forge-Text/internal/util"
	"github.com/chmielvu/Forge-Text/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp091.Channel the queue code needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
}

// Dial connects to RabbitMQ, retrying while the broker comes up.
func Dial(ctx context.Context, url string, maxTries int, wait time.Duration) (*amqp091.Connection, error) {
	conn, err := util.RetryWithBackoff(ctx, maxTries, wait, func(context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			logger.Warn("[Queue] RabbitMQ not reachable yet", "err", err)
		}
		return conn, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func RetryQueue(name string) string { return name + "_retry" }

func DeadLetterQueue(name string) string { return name + "_dlq" }

// SetupQueues declares every queue with its dead-letter queue and a retry
// queue whose messages expire back into the main queue after retryDelay.
func SetupQueues(ch Channel, names []string, retryDelay time.Duration) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := DeadLetterQueue(name)
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := RetryQueue(name)
		_, err := ch.QueueDeclare(retryName, true, false, false, false, amqp091.Table{
			"x-message-ttl":             int32(retryDelay.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		})
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO sends a persistent message to the default exchange.
func PublishFIFO(ctx context.Context, ch Channel, queueName string, data []byte) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}
