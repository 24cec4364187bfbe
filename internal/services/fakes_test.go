package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/noteshelf/noteshelf/internal/events"
	"github.com/noteshelf/noteshelf/internal/storage"
	"github.com/noteshelf/noteshelf/internal/store"
	"github.com/noteshelf/noteshelf/types"
)

type memoryStore struct {
	mu     sync.Mutex
	users  map[string]types.User
	notes  []types.Note
	nextID int

	deleteErr error
	commitErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]types.User)}
}

func (m *memoryStore) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryStore) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return types.User{}, &store.ConflictError{Field: "username"}
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, &store.ConflictError{Field: "email"}
		}
	}
	m.users[user.Username] = user
	return user, nil
}

// Delete mirrors the repository transaction: nothing changes unless the
// hook succeeds and commitErr is nil.
func (m *memoryStore) Delete(ctx context.Context, username string, beforeCommit func(context.Context, []types.Note) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[username]; !ok {
		return store.ErrNotFound
	}

	var removed []types.Note
	kept := []types.Note{}
	for _, note := range m.notes {
		if note.Owner == username {
			removed = append(removed, note)
		} else {
			kept = append(kept, note)
		}
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx, removed); err != nil {
			return err
		}
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	m.notes = kept
	delete(m.users, username)
	return nil
}

type memoryNotes struct {
	store *memoryStore
}

func (n memoryNotes) Create(_ context.Context, note types.Note) (types.Note, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	if _, ok := n.store.users[note.Owner]; !ok {
		return types.Note{}, store.ErrNotFound
	}
	n.store.nextID++
	note.ID = n.store.nextID
	n.store.notes = append(n.store.notes, note)
	return note, nil
}

func (n memoryNotes) Get(_ context.Context, id int) (types.Note, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	for _, note := range n.store.notes {
		if note.ID == id {
			return note, nil
		}
	}
	return types.Note{}, store.ErrNotFound
}

func (n memoryNotes) ListByOwner(_ context.Context, owner string) ([]types.Note, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	notes := []types.Note{}
	for _, note := range n.store.notes {
		if note.Owner == owner {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type memoryBucket struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: make(map[string][]byte)}
}

func (b *memoryBucket) EnsureBucket(context.Context) error { return nil }

func (b *memoryBucket) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memoryBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memoryBucket) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *memoryBucket) Bucket() string { return "test" }

func (b *memoryBucket) Close() error { return nil }
