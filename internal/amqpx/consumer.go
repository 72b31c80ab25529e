package amqpx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler returns nil only when the delivery may be acked.
type Handler func(ctx context.Context, body []byte) error

// Consumer reads one durable queue bound to the exchange with a routing key.
// Deliveries are acked after the handler succeeds and requeued otherwise.
type Consumer struct {
	url      string
	exchange string
	queue    string
	binding  string
	prefetch int
	log      *logger.Logger
}

func NewConsumer(url, exchange, queue, binding string, prefetch int, log *logger.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{url: url, exchange: exchange, queue: queue, binding: binding, prefetch: prefetch, log: log}
}

// Start blocks until ctx is cancelled. A dropped connection is redialed.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	for {
		err := c.consume(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("amqp_consume_restart", "consumer stopped, reconnecting", "queue", c.queue, "error", errString(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, h Handler) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := ch.QueueBind(c.queue, c.binding, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queue, c.binding, err)
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.log.Info("amqp_consumer_started", "consuming", "queue", c.queue, "binding", c.binding, "prefetch", c.prefetch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.process(ctx, d, h)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery, h Handler) {
	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := h(hctx, d.Body); err != nil {
		c.log.Error("amqp_handle_failed", "handler failed, requeueing", err,
			"routing_key", d.RoutingKey, "delivery_tag", d.DeliveryTag)
		if nerr := d.Nack(false, true); nerr != nil {
			c.log.Error("amqp_nack_failed", "nack failed", nerr)
		}
		return
	}
	if aerr := d.Ack(false); aerr != nil {
		c.log.Error("amqp_ack_failed", "ack failed", aerr)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
