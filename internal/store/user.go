package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noteshelf/noteshelf/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT username, password_hash, email, first_name, last_name, created_at
		FROM users
		WHERE username = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Create inserts user. Duplicate usernames or emails yield a *ConflictError;
// the database constraint is the final arbiter under concurrent registration.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO users (username, password_hash, email, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.FirstName,
		user.LastName,
		user.CreatedAt,
	); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// Delete removes the user and every note they own in one transaction. The
// user row is locked first, so a concurrent note insert waits for the delete
// and then fails its foreign key check. beforeCommit, when non-nil, receives
// the removed notes while the transaction is still open; an error from it
// rolls everything back.
func (r *UserRepository) Delete(ctx context.Context, username string, beforeCommit func(context.Context, []types.Note) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT username FROM users WHERE username = $1 FOR UPDATE`, username).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}

	notes, err := deleteNotesOf(ctx, tx, username)
	if err != nil {
		return err
	}

	if beforeCommit != nil {
		if err := beforeCommit(ctx, notes); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// deleteNotesOf removes owner's notes and returns them ordered by ID.
func deleteNotesOf(ctx context.Context, tx *sql.Tx, owner string) ([]types.Note, error) {
	const query = `
		DELETE FROM notes
		WHERE owner = $1
		RETURNING id, title, content, owner, created_at`
	rows, err := tx.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("delete user notes: %w", err)
	}
	defer rows.Close()

	notes := []types.Note{}
	for rows.Next() {
		var note types.Note
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.Owner, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deleted note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete user notes: %w", err)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}
