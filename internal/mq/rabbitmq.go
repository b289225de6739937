package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/whisperbox/webapp/config"
)

// RabbitMQClient publishes to and consumes from queues named after the
// channel, through the default exchange.
type RabbitMQClient struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue config.RabbitMQConfig

	// amqp channels are not safe for concurrent use.
	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err == nil && cfg.PrefetchCount > 0 {
		err = ch.Qos(cfg.PrefetchCount, 0, false)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	return &RabbitMQClient{
		conn:     conn,
		ch:       ch,
		queue:    cfg,
		declared: make(map[string]bool),
	}, nil
}

// Publish sends a persistent message and returns its generated id.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareLocked(channel); err != nil {
		return "", err
	}

	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	id := uuid.NewString()
	err := r.ch.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Subscribe acks deliveries the handler accepts and requeues the rest.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	r.mu.Lock()
	err := r.declareLocked(channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	tag := "whisperbox-" + uuid.NewString()
	deliveries, err := r.ch.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() { _ = r.ch.Cancel(tag, false) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			attrs := make(map[string]string, len(d.Headers))
			for k, v := range d.Headers {
				attrs[k] = fmt.Sprint(v)
			}
			if err := handler(ctx, Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbitMQClient) Close() error {
	_ = r.ch.Close()
	return r.conn.Close()
}

func (r *RabbitMQClient) declareLocked(name string) error {
	if r.declared[name] {
		return nil
	}
	if _, err := r.ch.QueueDeclare(name, r.queue.QueueDurable, r.queue.QueueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.declared[name] = true
	return nil
}
