package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/api/handlers"
	appMiddleware "github.com/aftr-app/aftr-backend/internal/api/middlewares"
	"github.com/aftr-app/aftr-backend/internal/config"
	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/core/llm"
	"github.com/aftr-app/aftr-backend/internal/core/session"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, vision *llm.GeminiVision, sessions *session.Manager, log zerolog.Logger) *Server {
	authHandler := handlers.NewAuthHandler(db)
	imageHandler := handlers.NewImageHandler(db, vision, sessions, cfg.VisionTimeout, log.With().Str("handler", "image").Logger())
	chatHandler := handlers.NewChatHandler(db, sessions, log.With().Str("handler", "chat").Logger())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/register", authHandler.Register)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)
			protected.Post("/upload", imageHandler.Upload)
			protected.Post("/chat", chatHandler.SendMessage)
			protected.Get("/history", chatHandler.History)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Fatal().Err(err).Msg("server error")
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
