package types

import "time"

// TitleMaxLen is the longest note title accepted.
const TitleMaxLen = 100

// Note is a text note owned by exactly one user.
type Note struct {
	// ID is the unique identifier of the note.
	ID int `json:"id" db:"id"`

	// Title is the short heading of the note.
	Title string `json:"title" db:"title"`

	// Content is the free-form body text.
	Content string `json:"content" db:"content"`

	// Owner is the username of the user the note belongs to.
	Owner string `json:"owner" db:"owner"`

	// CreatedAt is the timestamp at which the note was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
