package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/config"
	"github.com/aftr-app/aftr-backend/internal/core"
	db "github.com/aftr-app/aftr-backend/internal/core/database"
	"github.com/aftr-app/aftr-backend/internal/core/fitness"
	"github.com/aftr-app/aftr-backend/internal/core/llm"
	"github.com/aftr-app/aftr-backend/internal/core/session"
)

type App struct {
	DBClient core.DbClient
	Vision   *llm.GeminiVision
	Sessions *session.Manager
	Server   *Server
	log      zerolog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("database initialized and ready")

	vision, err := llm.NewGeminiVision(appCtx, cfg.GeminiAPIKey, cfg.VisionModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the vision provider: %w", err)
	}

	chat := llm.NewOpenRouterChat(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.ChatModel,
		cfg.ChatTimeout, log.With().Str("component", "openrouter").Logger())

	fitnessClient := fitness.NewClient(cfg.FitnessAPIBaseURL, cfg.FitnessAPIKey, cfg.FitnessAPIHost,
		cfg.FitnessTimeout, log.With().Str("component", "fitness").Logger())

	sessions := session.NewManager(dbClient, chat, fitnessClient,
		log.With().Str("component", "session").Logger())

	server := NewServer(cfg, dbClient, vision, sessions, log)

	return &App{
		DBClient: dbClient,
		Vision:   vision,
		Sessions: sessions,
		Server:   server,
		log:      log,
	}, nil
}

func (a *App) Close() {
	if a.Vision != nil {
		_ = a.Vision.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
