package amqpx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to a durable topic exchange. The event topic is used
// as routing key, so "order.placed" can be bound with "order.#".
type Publisher struct {
	url      string
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url, exchange string, log *logger.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if err = p.open(); err == nil {
			return nil
		}
		p.log.Warn("amqp_connect_retry", "rabbitmq connection failed", "attempt", attempt, "error", err.Error())
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return fmt.Errorf("connect rabbitmq: %w", err)
}

func (p *Publisher) open() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) Emit(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.open(); err != nil {
			return fmt.Errorf("reconnect rabbitmq: %w", err)
		}
	}

	tbl := amqp.Table{}
	for k, v := range headers {
		tbl[k] = v
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     headers[orders.HeaderEventID],
		CorrelationId: string(key),
		Headers:       tbl,
		Timestamp:     time.Now(),
		Body:          value,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debug("amqp_published", "event published", "exchange", p.exchange, "routing_key", topic, "size", len(value))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
