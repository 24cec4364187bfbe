package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/noteshelf/noteshelf/config"
	"github.com/noteshelf/noteshelf/internal/db"
	"github.com/noteshelf/noteshelf/internal/events"
	"github.com/noteshelf/noteshelf/internal/handlers"
	"github.com/noteshelf/noteshelf/internal/mq"
	"github.com/noteshelf/noteshelf/internal/services"
	"github.com/noteshelf/noteshelf/internal/session"
	"github.com/noteshelf/noteshelf/internal/storage"
	"github.com/noteshelf/noteshelf/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	queue      *mq.MQ
	storage    *storage.Storage
	logger     *slog.Logger

	closeOnce sync.Once
}

// New connects to the database and the optional archive and event backends,
// then builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (srv *Server, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger}
	defer func() {
		if err != nil {
			s.closeBackends()
		}
	}()

	s.db, err = db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.storage, err = storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	s.queue, err = mq.FromConfig(ctx, cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("init events: %w", err)
	}

	userRepo := store.NewUserRepository(s.db)
	noteRepo := store.NewNoteRepository(s.db)
	publisher := events.NewPublisher(s.queue, cfg.Events.Channel, logger)

	userService := services.NewUserService(userRepo, cfg.BcryptCost,
		services.WithUserEvents(publisher),
		services.WithArchiver(services.NewArchiver(s.storage)),
		services.WithUserLogger(logger),
	)
	noteService := services.NewNoteService(noteRepo, publisher)

	h, err := handlers.New(userService, noteService, logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	sessions := session.NewManager(cfg.Session)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(s.db))
	router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		h.Routes(r)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"storage_backend", cfg.Storage.Backend,
		"events_backend", cfg.Events.Backend,
	)
	return s, nil
}

// Start runs the HTTP server. It returns nil after a graceful shutdown. Any
// other failure closes the backends before it is returned.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.closeBackends()
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

// closeBackends runs once however many of New, Start and Shutdown call it.
func (s *Server) closeBackends() {
	s.closeOnce.Do(s.closeAll)
}

func (s *Server) closeAll() {
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("close event queue", "error", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.logger.Warn("close storage", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close database", "error", err)
		}
	}
}
