package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noteshelf/noteshelf/internal/storage"
	"github.com/noteshelf/noteshelf/types"
)

// ErrArchiveNotFound is returned by Load for an unknown key.
var ErrArchiveNotFound = errors.New("archive not found")

// Archive is the document written to object storage when an account is
// deleted.
type Archive struct {
	Username   string       `json:"username"`
	ArchivedAt time.Time    `json:"archived_at"`
	Notes      []types.Note `json:"notes"`
}

// Archiver writes note archives to object storage.
type Archiver struct {
	storage *storage.Storage
	now     func() time.Time
}

// NewArchiver returns nil when s is nil, which disables archiving.
func NewArchiver(s *storage.Storage) *Archiver {
	if s == nil {
		return nil
	}
	return &Archiver{storage: s, now: time.Now}
}

// Enabled reports whether archives are written anywhere.
func (a *Archiver) Enabled() bool {
	return a != nil && a.storage != nil
}

// Bucket names where archives go, for logs.
func (a *Archiver) Bucket() string {
	if !a.Enabled() {
		return ""
	}
	return a.storage.Bucket()
}

// Archive stores notes under archives/{username}/{unix-nano}.json and returns
// the object key.
func (a *Archiver) Archive(ctx context.Context, username string, notes []types.Note) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if notes == nil {
		notes = []types.Note{}
	}

	now := a.now().UTC()
	data, err := json.Marshal(Archive{Username: username, ArchivedAt: now, Notes: notes})
	if err != nil {
		return "", err
	}

	key := ArchiveKey(username, now)
	if err := a.storage.Write(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return key, nil
}

// Load reads the archive stored at key.
func (a *Archiver) Load(ctx context.Context, key string) (Archive, error) {
	if !a.Enabled() {
		return Archive{}, errors.New("archive storage is not configured")
	}
	data, err := a.storage.Read(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return Archive{}, ErrArchiveNotFound
	}
	if err != nil {
		return Archive{}, err
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return Archive{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return archive, nil
}

// Remove deletes the archive at key. Removing a missing archive succeeds.
func (a *Archiver) Remove(ctx context.Context, key string) error {
	if !a.Enabled() {
		return nil
	}
	return a.storage.Delete(ctx, key)
}

// ArchiveKey is the object key of an archive taken at t.
func ArchiveKey(username string, t time.Time) string {
	return fmt.Sprintf("archives/%s/%d.json", username, t.UnixNano())
}
