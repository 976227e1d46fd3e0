package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/promptlab/internal/analytics"
	"github.com/davidbz/promptlab/internal/export"
	"github.com/davidbz/promptlab/internal/language"
	"github.com/davidbz/promptlab/internal/provider/openai"
)

// Config represents the service configuration.
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	OpenAI     openai.Config
	History    HistoryConfig
	Redis      RedisConfig
	Language   language.Config
	Analytics  analytics.Config
	Export     export.Config
	Generation GenerationConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"300"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization,X-Session-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// HistoryConfig selects the prompt history backend.
type HistoryConfig struct {
	Backend    string `env:"HISTORY_BACKEND"     envDefault:"memory"`
	SQLitePath string `env:"HISTORY_SQLITE_PATH" envDefault:"promptlab.db"`
	RedisKey   string `env:"HISTORY_REDIS_KEY"   envDefault:"promptlab:history"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// GenerationConfig contains generation and comparison timeouts in seconds.
type GenerationConfig struct {
	Timeout           int `env:"GENERATION_TIMEOUT" envDefault:"120"`
	ComparisonTimeout int `env:"COMPARISON_TIMEOUT" envDefault:"120"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	Server     *ServerConfig
	CORS       *CORSConfig
	OpenAI     *openai.Config
	History    *HistoryConfig
	Redis      *RedisConfig
	Language   *language.Config
	Analytics  *analytics.Config
	Export     *export.Config
	Generation *GenerationConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.OpenAI,
		&cfg.History,
		&cfg.Redis,
		&cfg.Language,
		&cfg.Analytics,
		&cfg.Export,
		&cfg.Generation,
	}
}
