package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     string
	OTel     OTelConfig
	ChatLLM  LLMConfig
	Tasks    TaskAPIConfig
	Routines RoutineAPIConfig
	Spotify  SpotifyConfig
	Redis    RedisConfig
	Archive  ArchiveConfig
	Chat     ChatConfig
	LogLevel string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type TaskAPIConfig struct {
	BaseURL string
}

type RoutineAPIConfig struct {
	BaseURL string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
}

type RedisConfig struct {
	URL   string
	Table string // hash key holding routine records
}

// ArchiveConfig controls the optional Postgres transcript archive.
type ArchiveConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// ChatConfig bounds one coordinator turn.
type ChatConfig struct {
	MaxIterations  int
	HandleTimeout  int // seconds
	DedupThreshold float64
}

type ServiceType string

const (
	ServiceTypeServer   ServiceType = "server"
	ServiceTypeRoutines ServiceType = "routines"
)

// Load loads configuration from environment variables.
// In development it also reads a service-specific .env file
// (.env.server / .env.routines), falling back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CONCIERGE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:      getEnv("CONCIERGE_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "concierge"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		ChatLLM: LLMConfig{
			Provider:  getEnv("CHAT_LLM_PROVIDER", "openai"),
			APIKey:    getEnv("CHAT_LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:   getEnv("CHAT_LLM_BASE_URL", ""),
			Model:     getEnv("CHAT_LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("CHAT_LLM_MAX_TOKENS", 4096),
		},
		Tasks: TaskAPIConfig{
			BaseURL: getEnv("TASK_API_URL", "https://api.itenorio.com/lambda/tasks"),
		},
		Routines: RoutineAPIConfig{
			BaseURL: getEnv("ROUTINE_API_URL", "https://api.itenorio.com/lambda/routines"),
		},
		Spotify: SpotifyConfig{
			ClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("SPOTIFY_REDIRECT_URI", "http://localhost:3000/spotify-callback"),
			AuthURL:      getEnv("SPOTIFY_AUTH_URL", "https://accounts.spotify.com/authorize"),
			TokenURL:     getEnv("SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token"),
			APIURL:       getEnv("SPOTIFY_API_URL", "https://api.spotify.com/v1"),
		},
		Redis: RedisConfig{
			URL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Table: getEnv("ROUTINES_TABLE", "routines"),
		},
		Archive: ArchiveConfig{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		Chat: ChatConfig{
			MaxIterations:  getEnvInt("CHAT_MAX_ITERATIONS", 8),
			HandleTimeout:  getEnvInt("CHAT_HANDLE_TIMEOUT_SECONDS", 120),
			DedupThreshold: getEnvFloat("CHAT_DEDUP_THRESHOLD", 0.9),
		},
	}

	if serviceType == ServiceTypeServer && cfg.ChatLLM.APIKey == "" {
		return Config{}, fmt.Errorf("CHAT_LLM_API_KEY or OPENAI_API_KEY is required")
	}
	if serviceType == ServiceTypeRoutines && cfg.Redis.URL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c ArchiveConfig) Enabled() bool {
	return c.DSN != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
