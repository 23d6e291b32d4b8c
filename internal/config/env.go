package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        string `env:"PORT" envDefault:"8080"`
	JWTSecret   string `env:"JWT_SECRET"`

	GeminiAPIKey string `env:"GOOGLE_API_KEY"`
	VisionModel  string `env:"VISION_MODEL" envDefault:"gemini-1.5-flash"`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	ChatModel         string `env:"CHAT_MODEL" envDefault:"mistralai/mixtral-8x7b-instruct"`

	FitnessAPIBaseURL string `env:"FITNESS_API_BASE_URL" envDefault:"https://fitness10.p.rapidapi.com"`
	FitnessAPIKey     string `env:"RAPIDAPI_KEY"`
	FitnessAPIHost    string `env:"RAPIDAPI_HOST" envDefault:"fitness10.p.rapidapi.com"`

	VisionTimeout  time.Duration `env:"VISION_TIMEOUT" envDefault:"60s"`
	ChatTimeout    time.Duration `env:"CHAT_TIMEOUT" envDefault:"60s"`
	FitnessTimeout time.Duration `env:"FITNESS_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads .env (if present) and parses the environment.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}
