// Package events publishes account and note lifecycle events to the
// configured message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/noteshelf/noteshelf/internal/mq"
)

// Event types.
const (
	UserRegistered = "user.registered"
	UserLoggedIn   = "user.logged_in"
	UserDeleted    = "user.deleted"
	NoteCreated    = "note.created"
)

// Event is the JSON payload sent on the events channel.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Username   string    `json:"username"`
	NoteID     int       `json:"note_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event of the given type about username.
func New(eventType, username string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Username:   username,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends events on a single channel. A nil *Publisher, or one built
// without a queue, discards everything.
type Publisher struct {
	queue   *mq.MQ
	channel string
	logger  *slog.Logger
}

// NewPublisher returns a publisher writing to channel on q. q may be nil.
func NewPublisher(q *mq.MQ, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{queue: q, channel: channel, logger: logger}
}

// Publish sends ev. Failures are logged and otherwise ignored; the event
// feed never fails the operation that produced it.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil || p.queue == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode event", "type", ev.Type, "error", err)
		return
	}

	attrs := map[string]string{
		mq.AttrEventID:     ev.ID,
		mq.AttrEventType:   ev.Type,
		mq.AttrContentType: "application/json",
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.WarnContext(ctx, "publish event",
			"type", ev.Type,
			"id", ev.ID,
			"channel", p.channel,
			"error", err,
		)
	}
}

// Decode parses an event received from the broker.
func Decode(msg mq.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return ev, nil
}

// Subscribe delivers every event on channel to fn until ctx is done.
// Undecodable messages are logged and acknowledged.
func Subscribe(ctx context.Context, q *mq.MQ, channel string, logger *slog.Logger, fn func(context.Context, Event) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	return q.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		ev, err := Decode(msg)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed event", "error", err)
			return nil
		}
		return fn(ctx, ev)
	})
}
