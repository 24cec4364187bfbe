package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/noteshelf/noteshelf/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitMQ publishes to and consumes from queues on the default exchange.
// Publishing shares one AMQP channel; each subscription opens its own.
type rabbitMQ struct {
	conn *amqp.Connection
	cfg  config.RabbitMQConfig

	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]bool
}

func dialRabbitMQ(cfg config.RabbitMQConfig) (*rabbitMQ, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq: url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	return &rabbitMQ{
		conn:     conn,
		cfg:      cfg,
		pub:      pub,
		declared: make(map[string]bool),
	}, nil
}

func (r *rabbitMQ) Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error) {
	msg := rabbitPublishing(data, attrs, r.cfg.QueueDurable)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.declared[queue] {
		if err := r.declare(r.pub, queue); err != nil {
			return "", err
		}
		r.declared[queue] = true
	}
	if err := r.pub.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return "", fmt.Errorf("rabbitmq: publish to %s: %w", queue, err)
	}
	return msg.MessageId, nil
}

func (r *rabbitMQ) Subscribe(ctx context.Context, queue string, handler Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open consumer channel: %w", err)
	}
	// Closing the channel also cancels the consumer.
	defer ch.Close()

	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("rabbitmq: set prefetch: %w", err)
		}
	}
	if err := r.declare(ch, queue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(queue, "noteshelf-"+uuid.NewString(), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: deliveries on %s stopped", queue)
			}
			settle(d, handler(ctx, fromDelivery(d)))
		}
	}
}

func (r *rabbitMQ) Close() error {
	return errors.Join(r.pub.Close(), r.conn.Close())
}

func (r *rabbitMQ) declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare %s: %w", queue, err)
	}
	return nil
}

// rabbitPublishing maps attributes onto AMQP properties. Every attribute
// also travels as a header so consumers on other stacks can read it.
func rabbitPublishing(data []byte, attrs map[string]string, durable bool) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	id := attrs[AttrEventID]
	if id == "" {
		id = uuid.NewString()
	}
	mode := amqp.Transient
	if durable {
		mode = amqp.Persistent
	}
	return amqp.Publishing{
		MessageId:    id,
		Type:         attrs[AttrEventType],
		ContentType:  attrs[AttrContentType],
		DeliveryMode: mode,
		Headers:      headers,
		Body:         data,
	}
}

// fromDelivery rebuilds the attribute map from headers, falling back to the
// AMQP properties for messages published without them.
func fromDelivery(d amqp.Delivery) Message {
	attrs := make(map[string]string, len(d.Headers)+2)
	for k, v := range d.Headers {
		switch v := v.(type) {
		case string:
			attrs[k] = v
		case []byte:
			attrs[k] = string(v)
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	if attrs[AttrEventType] == "" && d.Type != "" {
		attrs[AttrEventType] = d.Type
	}
	if attrs[AttrContentType] == "" && d.ContentType != "" {
		attrs[AttrContentType] = d.ContentType
	}
	return Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}

// settle acks d, or requeues it when the handler failed.
func settle(d amqp.Delivery, handlerErr error) {
	if handlerErr != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
