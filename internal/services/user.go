package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/noteshelf/noteshelf/internal/events"
	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/internal/store"
	"github.com/noteshelf/noteshelf/types"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown username
// and for a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, username string, beforeCommit func(context.Context, []types.Note) error) error
}

// EventPublisher receives lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	cost     int
	events   EventPublisher
	archiver *Archiver
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash types.PasswordHash
}

// UserOption configures a UserService.
type UserOption func(*UserService)

// WithUserEvents publishes registration, login and deletion events to p.
func WithUserEvents(p EventPublisher) UserOption {
	return func(s *UserService) { s.events = p }
}

// WithArchiver archives a user's notes as part of deleting the account.
func WithArchiver(a *Archiver) UserOption {
	return func(s *UserService) { s.archiver = a }
}

// WithUserLogger sets the logger used for background failures.
func WithUserLogger(l *slog.Logger) UserOption {
	return func(s *UserService) { s.logger = l }
}

// NewUserService hashes passwords at the given bcrypt cost.
func NewUserService(repo UserRepository, cost int, opts ...UserOption) *UserService {
	s := &UserService{repo: repo, cost: cost, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the form, hashes the password and stores the new user.
// Invalid input is reported as forms.ValidationErrors; a taken username or
// email as a *store.ConflictError.
func (s *UserService) Register(ctx context.Context, form forms.Registration) (types.User, error) {
	if err := form.Validate().Err(); err != nil {
		return types.User{}, err
	}

	user, err := types.NewUser(form.Username, form.Password, form.Email, form.FirstName, form.LastName, s.cost)
	if errors.Is(err, types.ErrPasswordTooLong) {
		errs := forms.ValidationErrors{}
		errs.Add("password", "Password is too long.")
		return types.User{}, errs
	}
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.publish(ctx, events.New(events.UserRegistered, created.Username))
	return created, nil
}

// Authenticate returns the user whose password matches. Unknown usernames
// still pay for a bcrypt comparison so both failure paths look alike.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.dummy().Matches(password)
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, err
	}

	if !user.PasswordHash.Matches(password) {
		return types.User{}, ErrInvalidCredentials
	}

	s.publish(ctx, events.New(events.UserLoggedIn, user.Username))
	return user, nil
}

// GetOrNotFound returns the user or store.ErrNotFound.
func (s *UserService) GetOrNotFound(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Delete removes the user and every note they own. When an archiver is
// configured the removed notes are archived before the deletion commits, so
// a failed archive keeps the account intact. If the deletion fails after the
// archive was written, the archive is removed again.
func (s *UserService) Delete(ctx context.Context, username string) error {
	var (
		key   string
		count int
	)
	var archive func(context.Context, []types.Note) error
	if s.archiver.Enabled() {
		archive = func(ctx context.Context, notes []types.Note) error {
			k, err := s.archiver.Archive(ctx, username, notes)
			if err != nil {
				return fmt.Errorf("archive notes: %w", err)
			}
			key, count = k, len(notes)
			return nil
		}
	}

	if err := s.repo.Delete(ctx, username, archive); err != nil {
		if key != "" {
			if rmErr := s.archiver.Remove(ctx, key); rmErr != nil {
				s.logger.WarnContext(ctx, "remove orphaned archive", "key", key, "bucket", s.archiver.Bucket(), "error", rmErr)
			}
		}
		return err
	}

	if key != "" {
		s.logger.InfoContext(ctx, "archived notes",
			"username", username,
			"count", count,
			"bucket", s.archiver.Bucket(),
			"key", key,
		)
	}
	s.publish(ctx, events.New(events.UserDeleted, username))
	return nil
}

func (s *UserService) publish(ctx context.Context, ev events.Event) {
	if s.events != nil {
		s.events.Publish(ctx, ev)
	}
}

func (s *UserService) dummy() types.PasswordHash {
	s.dummyOnce.Do(func() {
		hash, err := types.HashPassword("noteshelf-dummy-password", s.cost)
		if err != nil {
			s.logger.Error("build dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
