// Package mq carries the event feed over RabbitMQ or Google Cloud Pub/Sub.
package mq

import (
	"context"
	"errors"
	"strings"

	"github.com/noteshelf/noteshelf/config"
)

// Well-known message attributes.
const (
	AttrEventID     = "event_id"
	AttrEventType   = "event_type"
	AttrContentType = "content_type"
)

const defaultContentType = "application/json"

// ErrNoChannel is returned when a publish or subscribe names no channel.
var ErrNoChannel = errors.New("mq: channel is required")

// Message is a broker-independent delivery.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. A non-nil error asks the broker to
// redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ fronts a Backend. Every published message carries a content type.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// FromConfig connects to the broker selected by cfg.Backend. It returns
// nil, nil when no broker is configured.
func FromConfig(ctx context.Context, cfg config.EventsConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.TrimSpace(cfg.Backend) {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendRabbitMQ:
		backend, err = dialRabbitMQ(cfg.RabbitMQ)
	case config.BackendPubSub:
		backend, err = connectPubSub(ctx, cfg.PubSub)
	default:
		return nil, errors.New("unknown events backend: " + cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}

// Publish sends data on channel and returns the broker's message ID.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", ErrNoChannel
	}
	return m.backend.Publish(ctx, channel, data, withDefaults(attrs))
}

// Subscribe blocks delivering messages on channel to handler until ctx is
// done or the broker fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return ErrNoChannel
	}
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}

// withDefaults copies attrs and fills in the content type.
func withDefaults(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	if out[AttrContentType] == "" {
		out[AttrContentType] = defaultContentType
	}
	return out
}
