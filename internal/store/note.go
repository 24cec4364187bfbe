package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/noteshelf/noteshelf/types"
)

// pq error code for foreign_key_violation.
const foreignKeyViolation = "23503"

// NoteRepository handles persistence for notes.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts note and returns it with its generated ID. A missing owner
// yields ErrNotFound.
func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	note.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO notes (title, content, owner, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		note.Title,
		note.Content,
		note.Owner,
		note.CreatedAt,
	).Scan(&note.ID); err != nil {
		if isForeignKeyViolation(err) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, fmt.Errorf("create note: %w", err)
	}

	return note, nil
}

func (r *NoteRepository) Get(ctx context.Context, id int) (types.Note, error) {
	const query = `
		SELECT id, title, content, owner, created_at
		FROM notes
		WHERE id = $1`
	var note types.Note
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.Owner,
		&note.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// ListByOwner returns the owner's notes in insertion order.
func (r *NoteRepository) ListByOwner(ctx context.Context, owner string) ([]types.Note, error) {
	const query = `
		SELECT id, title, content, owner, created_at
		FROM notes
		WHERE owner = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		var note types.Note
		if err := rows.Scan(
			&note.ID,
			&note.Title,
			&note.Content,
			&note.Owner,
			&note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	return notes, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
