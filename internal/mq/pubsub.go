package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/noteshelf/noteshelf/config"
	"google.golang.org/api/option"
)

// googlePubSub maps a channel to a topic of the same name, and a subscriber
// to the subscription named channel+suffix. Topics are created on first use
// and kept open so their publish batching survives across calls.
type googlePubSub struct {
	client *pubsub.Client
	suffix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func connectPubSub(ctx context.Context, cfg config.PubSubConfig) (*googlePubSub, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	return &googlePubSub{
		client: client,
		suffix: cfg.SubscriptionSuffix,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

func (g *googlePubSub) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	topic, err := g.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("pubsub: publish to %s: %w", channel, err)
	}
	return id, nil
}

func (g *googlePubSub) Subscribe(ctx context.Context, channel string, handler Handler) error {
	topic, err := g.topic(ctx, channel)
	if err != nil {
		return err
	}

	name := subscriptionName(channel, g.suffix)
	sub := g.client.Subscription(name)
	found, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("pubsub: check subscription %s: %w", name, err)
	}
	if !found {
		if sub, err = g.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic}); err != nil {
			return fmt.Errorf("pubsub: create subscription %s: %w", name, err)
		}
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if err := handler(ctx, Message{ID: m.ID, Data: m.Data, Attributes: m.Attributes}); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

// Close flushes pending publishes before closing the client.
func (g *googlePubSub) Close() error {
	g.mu.Lock()
	for _, t := range g.topics {
		t.Stop()
	}
	g.topics = nil
	g.mu.Unlock()
	return g.client.Close()
}

func (g *googlePubSub) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.topics == nil {
		return nil, errors.New("pubsub: client is closed")
	}
	if t, ok := g.topics[name]; ok {
		return t, nil
	}

	t := g.client.Topic(name)
	found, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("pubsub: check topic %s: %w", name, err)
	}
	if !found {
		if t, err = g.client.CreateTopic(ctx, name); err != nil {
			return nil, fmt.Errorf("pubsub: create topic %s: %w", name, err)
		}
	}
	g.topics[name] = t
	return t, nil
}

func subscriptionName(channel, suffix string) string {
	return channel + suffix
}
