package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one decoded message body. Returning nil acks the
// delivery; returning an error nacks it with requeue=true so a transient
// failure (a down database, a stalled HTTP callback) gets another
// attempt, except an error built by Decode or Malformed, which is nacked
// without requeue — the Go equivalent of the source's message_callback
// wrapper.
type Handler func(ctx context.Context, body []byte) error

// Consumer owns its own connection and channel, prefetch=1, manual ack —
// one message in flight per consumer at a time, so a slow handler never
// starves other consumers sharing the same queue.
type Consumer struct {
	url       string
	queue     string
	heartbeat time.Duration
	log       *logrus.Entry
}

// NewConsumer constructs a Consumer bound to queue. Call Run to start
// consuming; Run blocks until ctx is cancelled.
func NewConsumer(url, queue string, heartbeat time.Duration, log *logrus.Entry) *Consumer {
	return &Consumer{url: url, queue: queue, heartbeat: heartbeat, log: log}
}

// Run consumes from the queue until ctx is cancelled, reconnecting with
// backoff whenever the connection drops — mirroring the source's outer
// `while True` reconnect loop around basic_consume.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.runOnce(ctx, handle); err != nil {
			c.log.WithError(err).Warn("consumer connection lost, reconnecting")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseReconnectDelay):
			}
			continue
		}
		return nil
	}
}

func (c *Consumer) runOnce(ctx context.Context, handle Handler) error {
	conn, err := dialWithBackoff(ctx, c.url, c.heartbeat, c.log)
	if err != nil {
		return fmt.Errorf("consumer connect: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("consumer qos: %w", err)
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, queueArgs()); err != nil {
		return fmt.Errorf("consumer queue declare: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer basic_consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return fmt.Errorf("broker connection closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d, handle)
		}
	}
}

// handleDelivery runs handle in a recover-guarded call so a panicking
// handler nacks (requeue) the message instead of crashing the consumer —
// the same isolation worker.Runtime's runIsolated applies to stage Execute calls.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, handle Handler) {
	err := c.runIsolated(ctx, d.Body, handle)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.WithError(ackErr).Error("ack failed")
		}
		return
	}

	if _, jsonErr := isMalformed(err); jsonErr {
		c.log.WithError(err).Error("malformed message, discarding")
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.log.WithError(nackErr).Error("nack (discard) failed")
		}
		return
	}

	c.log.WithError(err).Warn("handler failed, requeueing")
	if nackErr := d.Nack(false, true); nackErr != nil {
		c.log.WithError(nackErr).Error("nack (requeue) failed")
	}
}

func (c *Consumer) runIsolated(ctx context.Context, body []byte, handle Handler) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handle(ctx, body)
}

// malformedError marks a message body that failed to decode — nacked
// without requeue since retrying won't fix bad JSON.
type malformedError struct{ err error }

func (m *malformedError) Error() string { return m.err.Error() }
func (m *malformedError) Unwrap() error { return m.err }

func isMalformed(err error) (error, bool) {
	m, ok := err.(*malformedError)
	if !ok {
		return nil, false
	}
	return m.err, true
}

// Malformed marks err as a permanently invalid message — nacked without
// requeue, the same treatment Decode gives a JSON decode failure. Handlers
// should return this (not a %w-wrapped version of it, which isMalformed's
// type assertion won't see) for a message that decoded fine but failed
// Validate(): retrying it would fail the same way every time.
func Malformed(err error) error {
	return &malformedError{err: err}
}

// Decode unmarshals body into v, wrapping JSON errors as malformed so the
// consumer discards rather than requeues them.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &malformedError{err: err}
	}
	return nil
}
