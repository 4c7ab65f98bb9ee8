package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const retriesHeader = "x-retries"

// Handler processes one message body. A non-nil reply is sent to the
// message's ReplyTo queue when it has one.
type Handler func(ctx context.Context, body []byte) (reply []byte, err error)

// Consumer feeds one queue's messages to a Handler, one at a time. Failed
// messages go to the retry queue and, after MaxRetries, to the dead-letter
// queue.
type Consumer struct {
	ch         Channel
	queue      string
	maxRetries int
	prefetch   int
	handler    Handler
}

type NewConsumerParams struct {
	Channel    Channel
	Queue      string
	MaxRetries int
	Prefetch   int
	Handler    Handler
}

func NewConsumer(params NewConsumerParams) *Consumer {
	if params.Prefetch <= 0 {
		params.Prefetch = 1
	}
	return &Consumer{
		ch:         params.Channel,
		queue:      params.Queue,
		maxRetries: params.MaxRetries,
		prefetch:   params.Prefetch,
		handler:    params.Handler,
	}
}

// Run consumes until ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.prefetch, 0, true); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := c.ch.Consume(c.queue, c.queue+"_consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", c.queue, err)
	}

	logger.Info("[Queue] Listening for messages", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", c.queue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", c.queue)
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", c.queue, "correlation_id", msg.CorrelationId)

	reply, err := c.handler(ctx, msg.Body)
	if err != nil {
		logger.Error("[Queue] Error processing message", "queue", c.queue, "err", err)
		c.handleProcessingError(ctx, msg)
		return
	}

	if msg.ReplyTo != "" && reply != nil {
		pubErr := c.ch.PublishWithContext(ctx, "", msg.ReplyTo, false, false, amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.CorrelationId,
			Body:          reply,
			Timestamp:     time.Now(),
		})
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish reply", "reply_to", msg.ReplyTo, "err", pubErr)
		}
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	logger.Info("[Queue] Message processed successfully", "queue", c.queue, "duration", time.Since(start).Round(time.Millisecond))
}

// retries reads the retry counter. Brokers may hand integers back in any
// width, so every integer type is accepted.
func retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
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
	}
	return 0
}

func (c *Consumer) handleProcessingError(ctx context.Context, msg amqp091.Delivery) {
	n := retries(msg.Headers)

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := RetryQueue(c.queue)
	if n >= c.maxRetries {
		target = DeadLetterQueue(c.queue)
		logger.Info("[Queue] Sending message to DLQ", "dlq", target, "retries", n)
	} else {
		headers[retriesHeader] = int32(n + 1)
	}

	pubErr := c.ch.PublishWithContext(ctx, "", target, false, false, amqp091.Publishing{
		ContentType:   msg.ContentType,
		CorrelationId: msg.CorrelationId,
		ReplyTo:       msg.ReplyTo,
		Body:          msg.Body,
		Headers:       headers,
		DeliveryMode:  amqp091.Persistent,
	})
	if pubErr != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
