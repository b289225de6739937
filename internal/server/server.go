package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/whisperbox/webapp/config"
	"github.com/whisperbox/webapp/internal/auth"
	"github.com/whisperbox/webapp/internal/handlers"
	"github.com/whisperbox/webapp/internal/mq"
	"github.com/whisperbox/webapp/internal/services"
	"github.com/whisperbox/webapp/internal/storage"
	"github.com/whisperbox/webapp/internal/store"
	"github.com/whisperbox/webapp/internal/view"
	"github.com/whisperbox/webapp/web"
)

const sessionSweepInterval = 10 * time.Minute

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	sessions   *auth.SessionManager
	broker     mq.Backend
	logger     *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	renderer, err := newRenderer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return nil, err
	}

	broker, err := mq.NewBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mq: %w", err)
	}
	var publisher mq.Publisher = mq.NopPublisher{}
	if broker != nil {
		publisher = mq.NewEventPublisher(mq.New(broker), cfg.MQ.Channel)
	}

	userRepo := store.NewUserRepository()
	userService := services.NewUserService(userRepo, publisher, logger)
	adminService := services.NewAdminService(userRepo, verifier)
	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.Recoverer,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.PublicRouter(router, userService, renderer, logger, cfg.TrustProxy)
	handlers.AdminRouter(router, adminService, sessions, renderer, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		sessions:   sessions,
		broker:     broker,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

func newRenderer(ctx context.Context, cfg config.Config) (*view.Renderer, error) {
	switch cfg.Templates.Source {
	case config.TemplatesEmbed, "":
		return view.NewRenderer(view.NewFSSource(web.Templates())), nil
	case config.TemplatesDir:
		return view.NewRenderer(view.NewFSSource(os.DirFS(cfg.Templates.Dir))), nil
	default:
		objects, err := storage.New(ctx, cfg.Templates.Source, cfg)
		if err != nil {
			return nil, fmt.Errorf("init template storage: %w", err)
		}
		return view.NewRenderer(view.NewBucketSource(objects, cfg.Templates.Prefix)), nil
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server and the expired-session sweeper.
func (s *Server) Start() error {
	go s.sweepSessions()

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.broker != nil {
			if closeErr := s.broker.Close(); closeErr != nil {
				s.logger.Warn("close mq failed", "error", closeErr)
			}
		}
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *Server) sweepSessions() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if removed := s.sessions.Sweep(); removed > 0 {
				s.logger.Debug("expired sessions removed", "count", removed)
			}
		}
	}
}
