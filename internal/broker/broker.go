// Package broker wires the control plane onto RabbitMQ: one durable queue
// per pipeline stage plus a status queue, consumed with manual ack/nack
// and prefetch=1, reconnecting with exponential backoff on connection
// loss — the Go-native equivalent of the source's RabbitMQConnection,
// generalized to carry typed messages (models.StageRequest /
// models.StatusEvent) instead of duck-typed dicts.
package broker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	messageTTL     = time.Hour
	maxQueueLength = 10000

	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 5 * time.Minute
	maxConnectAttempts = 10
)

// queueArgs is the argument table every durable queue declares — 1h TTL,
// 10k cap, drop-head overflow — mirroring the source's queue_args exactly.
func queueArgs() amqp.Table {
	return amqp.Table{
		"x-message-ttl": int64(messageTTL / time.Millisecond),
		"x-max-length":  int64(maxQueueLength),
		"x-overflow":    "drop-head",
	}
}

// dialWithBackoff connects to url, retrying up to maxConnectAttempts times
// with exponential backoff starting at baseReconnectDelay and capped at
// maxReconnectDelay.
func dialWithBackoff(ctx context.Context, url string, heartbeat time.Duration, log *logrus.Entry) (*amqp.Connection, error) {
	delay := baseReconnectDelay
	var lastErr error

	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		log.WithField("attempt", attempt).Info("connecting to broker")
		conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: heartbeat})
		if err == nil {
			return conn, nil
		}

		lastErr = err
		log.WithError(err).Warn("broker connection attempt failed")
		if attempt == maxConnectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}

	return nil, lastErr
}
