package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher owns its own connection and channel, separate from any
// Consumer, so a slow or stuck consumer never blocks publishing and vice
// versa (the source keeps one connection per role for the same reason).
type Publisher struct {
	url       string
	heartbeat time.Duration
	log       *logrus.Entry

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher opens a connection and channel against url.
func NewPublisher(ctx context.Context, url string, heartbeat time.Duration, log *logrus.Entry) (*Publisher, error) {
	p := &Publisher{url: url, heartbeat: heartbeat, log: log}
	if err := p.reconnect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) reconnect(ctx context.Context) error {
	conn, err := dialWithBackoff(ctx, p.url, p.heartbeat, p.log)
	if err != nil {
		return fmt.Errorf("publisher connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("publisher channel: %w", err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// DeclareQueue declares a durable queue with the standard TTL/max-length/
// drop-head arguments. Idempotent — safe to call before every publish.
func (p *Publisher) DeclareQueue(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.ch.QueueDeclare(name, true, false, false, false, queueArgs())
	return err
}

// Publish sends v, JSON-encoded, to queue as a persistent message. On a
// channel/connection error it reconnects once and retries — the worker
// and dispatcher publish paths are expected to treat a second failure as
// fatal for that call.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).Warn("publish failed, reconnecting")
		if rerr := p.reconnect(ctx); rerr != nil {
			return fmt.Errorf("publish: reconnect failed: %w", rerr)
		}
		return p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
