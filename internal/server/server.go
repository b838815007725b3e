package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cicap/personnel/config"
	"github.com/cicap/personnel/internal/handlers"
	"github.com/cicap/personnel/internal/mq"
	"github.com/cicap/personnel/internal/services"
	"github.com/cicap/personnel/internal/session"
	"github.com/cicap/personnel/internal/storage"
	"github.com/cicap/personnel/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// requestTimeout bounds a handler; the server's write timeout leaves room
// for the timeout response itself to be written.
const (
	requestTimeout = 30 * time.Second
	writeTimeout   = requestTimeout + 5*time.Second
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	events     *mq.MQ
	log        *slog.Logger
}

// New wires stores, services and routes from cfg.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	documents, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("document storage: %w", err)
	}
	if err := documents.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("document storage: %w", err)
	}

	events, err := mq.FromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	sessions, err := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		log.WarnContext(ctx, "SESSION_SECRET not set, using a random per-process secret")
	}

	userRepo := store.NewUserRepository(cfg.Data.UsersFile)
	recordRepo := store.NewRecordRepository(cfg.Data.RecordsFile)

	userService := services.NewUserService(userRepo, log)
	recordService := services.NewRecordService(recordRepo, documents, log)
	if events != nil {
		userService.SetEvents(events, cfg.Events.Channel)
		recordService.SetEvents(events, cfg.Events.Channel)
	}

	authMiddleware := handlers.RequireSession(sessions)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/departments", handlers.ListDepartments)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessions, log)
	})
	router.Route("/records", func(r chi.Router) {
		handlers.RecordRouter(r, recordService, documents, authMiddleware, log)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		events:     events,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones, and closes the
// events broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		_ = s.events.Close()
	}
	return err
}
