package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/noteshelf/noteshelf/internal/storage"
	"github.com/noteshelf/noteshelf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveKey(t *testing.T) {
	at := time.Unix(0, 1700000000000000000)
	assert.Equal(t, "archives/alice/1700000000000000000.json", ArchiveKey("alice", at))
}

func TestArchiver_Disabled(t *testing.T) {
	var a *Archiver
	assert.False(t, a.Enabled())
	assert.Nil(t, NewArchiver(nil))

	key, err := a.Archive(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestArchiver_EmptyNotesEncodeAsArray(t *testing.T) {
	bucket := newMemoryBucket()
	a := NewArchiver(storage.NewStorage(bucket))
	a.now = func() time.Time { return time.Unix(0, 42) }

	key, err := a.Archive(context.Background(), "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, "archives/bob/42.json", key)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(bucket.objects[key], &doc))
	assert.JSONEq(t, `[]`, string(doc["notes"]))
}

func TestArchiver_LoadAndRemove(t *testing.T) {
	ctx := context.Background()
	bucket := newMemoryBucket()
	a := NewArchiver(storage.NewStorage(bucket))
	a.now = func() time.Time { return time.Unix(0, 7) }
	assert.Equal(t, "test", a.Bucket())

	notes := []types.Note{{ID: 3, Title: "Groceries", Content: "milk", Owner: "alice"}}
	key, err := a.Archive(ctx, "alice", notes)
	require.NoError(t, err)

	archive, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "alice", archive.Username)
	assert.True(t, archive.ArchivedAt.Equal(time.Unix(0, 7)))
	assert.Equal(t, notes[0].Title, archive.Notes[0].Title)

	require.NoError(t, a.Remove(ctx, key))
	_, err = a.Load(ctx, key)
	assert.ErrorIs(t, err, ErrArchiveNotFound)

	require.NoError(t, a.Remove(ctx, key), "removing twice succeeds")
}

func TestArchiver_LoadRejectsGarbage(t *testing.T) {
	bucket := newMemoryBucket()
	bucket.objects["archives/alice/1.json"] = []byte("not json")
	a := NewArchiver(storage.NewStorage(bucket))

	_, err := a.Load(context.Background(), "archives/alice/1.json")
	assert.ErrorContains(t, err, "decode archives/alice/1.json")
}

func TestArchiver_DisabledLoad(t *testing.T) {
	var a *Archiver
	_, err := a.Load(context.Background(), "archives/alice/1.json")
	assert.Error(t, err)
	assert.NoError(t, a.Remove(context.Background(), "archives/alice/1.json"))
	assert.Empty(t, a.Bucket())
}
