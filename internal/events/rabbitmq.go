package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQPublisher publishes events as persistent messages on a durable
// queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger

	mu sync.Mutex // amqp.Channel is not safe for concurrent publishing
}

// NewRabbitMQConfig contains options for connecting to RabbitMQ.
type NewRabbitMQConfig struct {
	URL   string
	Queue string
}

// NewRabbitMQPublisher connects to RabbitMQ and declares the queue.
func NewRabbitMQPublisher(cfg NewRabbitMQConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, ch, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to RabbitMQ", zap.String("queue", cfg.Queue))
	return &RabbitMQPublisher{conn: conn, channel: ch, queue: cfg.Queue, logger: logger}, nil
}

func dial(cfg NewRabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel opening fails
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if _, err := declare(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue '%s': %w", queue, err)
	}
	return q, nil
}

// Publish sends e to the queue.
func (p *RabbitMQPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := e.Encode()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Type:         e.Type,
			Timestamp:    e.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s to queue '%s': %w", e.Type, p.queue, err)
	}
	p.logger.Debug("Published event", zap.String("type", e.Type), zap.String("orderId", e.OrderID))
	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	return closeAll(p.channel, p.conn, p.logger)
}

func closeAll(ch *amqp.Channel, conn *amqp.Connection, logger *zap.Logger) error {
	var lastErr error
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
			lastErr = err
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Warn("Error closing RabbitMQ connection", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// Handler processes one event. A returned error requeues the message once;
// a redelivered message that fails again is dropped.
type Handler func(ctx context.Context, e Event) error

// Consume delivers events from the queue to handler until ctx ends.
func Consume(ctx context.Context, cfg NewRabbitMQConfig, handler Handler, logger *zap.Logger) error {
	conn, ch, err := dial(cfg)
	if err != nil {
		return err
	}
	defer closeAll(ch, conn, logger)

	msgs, err := ch.Consume(
		cfg.Queue, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer for queue '%s': %w", cfg.Queue, err)
	}

	logger.Info("Waiting for events", zap.String("queue", cfg.Queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of queue '%s' closed", cfg.Queue)
			}
			dispatch(ctx, d, handler, logger)
		}
	}
}

func dispatch(ctx context.Context, d amqp.Delivery, handler Handler, logger *zap.Logger) {
	e, err := Decode(d.Body)
	if err != nil {
		logger.Warn("Dropping undecodable event", zap.String("messageId", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, e); err != nil {
		logger.Error("Event handler failed",
			zap.String("type", e.Type),
			zap.String("orderId", e.OrderID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}
