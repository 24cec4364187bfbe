package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/noteshelf/noteshelf/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	published []mq.Message
	channel   string
	err       error
}

func (f *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.channel = channel
	f.published = append(f.published, mq.Message{ID: attrs[mq.AttrEventID], Data: data, Attributes: attrs})
	return attrs[mq.AttrEventID], nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for _, msg := range f.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func TestPublish(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPublisher(mq.New(backend), "noteshelf.events", nil)

	ev := New(NoteCreated, "alice")
	ev.NoteID = 7
	p.Publish(context.Background(), ev)

	require.Len(t, backend.published, 1)
	assert.Equal(t, "noteshelf.events", backend.channel)

	msg := backend.published[0]
	assert.Equal(t, NoteCreated, msg.Attributes[mq.AttrEventType])
	assert.Equal(t, "application/json", msg.Attributes[mq.AttrContentType])

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 7, got.NoteID)
}

func TestPublishFillsIDAndTime(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPublisher(mq.New(backend), "ch", nil)

	p.Publish(context.Background(), Event{Type: UserDeleted, Username: "bob"})

	require.Len(t, backend.published, 1)
	got, err := Decode(backend.published[0])
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.WithinDuration(t, time.Now(), got.OccurredAt, time.Minute)
}

func TestPublishWithoutQueueIsNoop(t *testing.T) {
	var nilPublisher *Publisher
	assert.NotPanics(t, func() {
		nilPublisher.Publish(context.Background(), New(UserRegistered, "alice"))
		NewPublisher(nil, "ch", nil).Publish(context.Background(), New(UserRegistered, "alice"))
	})
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	backend := &fakeBackend{err: errors.New("broker down")}
	p := NewPublisher(mq.New(backend), "ch", nil)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), New(UserLoggedIn, "alice"))
	})
	assert.Empty(t, backend.published)
}

func TestSubscribeSkipsMalformed(t *testing.T) {
	backend := &fakeBackend{}
	q := mq.New(backend)
	p := NewPublisher(q, "ch", nil)
	p.Publish(context.Background(), New(UserRegistered, "alice"))
	backend.published = append([]mq.Message{{ID: "bad", Data: []byte("not json")}}, backend.published...)

	var got []Event
	err := Subscribe(context.Background(), q, "ch", nil, func(_ context.Context, ev Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, UserRegistered, got[0].Type)
}
