// Package handlers serves the HTML pages: registration, login, the user's
// notes page and the note forms.
package handlers

import (
	"context"
	"html/template"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/types"
)

// UserService is the subset of services.UserService the handlers need.
type UserService interface {
	Register(ctx context.Context, form forms.Registration) (types.User, error)
	Authenticate(ctx context.Context, username, password string) (types.User, error)
	GetOrNotFound(ctx context.Context, username string) (types.User, error)
	Delete(ctx context.Context, username string) error
}

// NoteService is the subset of services.NoteService the handlers need.
type NoteService interface {
	Create(ctx context.Context, owner string, form forms.NoteInput) (types.Note, error)
	Get(ctx context.Context, id int) (types.Note, error)
	ListByOwner(ctx context.Context, owner string) ([]types.Note, error)
}

// Handler provides the HTML handlers.
type Handler struct {
	users  UserService
	notes  NoteService
	logger *slog.Logger
	pages  map[string]*template.Template
}

// New parses the embedded templates and returns a Handler.
func New(users UserService, notes NoteService, logger *slog.Logger) (*Handler, error) {
	parsed, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:  users,
		notes:  notes,
		logger: logger,
		pages:  parsed,
	}, nil
}

// Routes registers every page route on r. The session middleware must run
// before these handlers.
func (h *Handler) Routes(r chi.Router) {
	r.NotFound(h.NotFound)
	r.Get("/", h.Index)

	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/", h.ShowUser)
		r.Post("/delete", h.DeleteUser)
		r.Get("/notes/add", h.NoteForm)
		r.Post("/notes/add", h.AddNote)
		r.Get("/notes/{noteID}", h.ShowNote)
	})
}
