package services

import (
	"context"

	"github.com/noteshelf/noteshelf/internal/events"
	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/types"
)

// NoteRepository defines persistence operations for notes.
type NoteRepository interface {
	Create(ctx context.Context, note types.Note) (types.Note, error)
	Get(ctx context.Context, id int) (types.Note, error)
	ListByOwner(ctx context.Context, owner string) ([]types.Note, error)
}

// NoteService encapsulates note use-cases.
type NoteService struct {
	repo   NoteRepository
	events EventPublisher
}

func NewNoteService(repo NoteRepository, publisher EventPublisher) *NoteService {
	return &NoteService{repo: repo, events: publisher}
}

// Create stores a note owned by owner. The owner is always the caller's
// session identity; the form carries no owner of its own.
func (s *NoteService) Create(ctx context.Context, owner string, form forms.NoteInput) (types.Note, error) {
	if err := form.Validate().Err(); err != nil {
		return types.Note{}, err
	}

	note, err := s.repo.Create(ctx, types.Note{
		Title:   form.Title,
		Content: form.Content,
		Owner:   owner,
	})
	if err != nil {
		return types.Note{}, err
	}

	if s.events != nil {
		ev := events.New(events.NoteCreated, owner)
		ev.NoteID = note.ID
		s.events.Publish(ctx, ev)
	}
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, id int) (types.Note, error) {
	return s.repo.Get(ctx, id)
}

// ListByOwner returns owner's notes in insertion order.
func (s *NoteService) ListByOwner(ctx context.Context, owner string) ([]types.Note, error) {
	return s.repo.ListByOwner(ctx, owner)
}
