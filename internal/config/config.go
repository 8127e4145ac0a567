package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Telegram   TelegramConfig
	AI         AIConfig
	Sports     SportsAPIConfig
	Automation AutomationConfig
	Auth       AuthConfig
}

type ServerConfig struct {
	Port       string   `env:"PORT" envDefault:"8080"`
	Host       string   `env:"HOST" envDefault:"localhost"`
	PublicURL  string   `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	CronSecret string   `env:"CRON_SECRET"`
	Origins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"goalcast"`
	Password string `env:"DB_PASSWORD" envDefault:"goalcast"`
	DBName   string `env:"DB_NAME" envDefault:"goalcast"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	URL      string `env:"DATABASE_URL"`
}

type TelegramConfig struct {
	BotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	Timeout  time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"30s"`
	DryRun   bool          `env:"TELEGRAM_DRY_RUN" envDefault:"false"`
}

type AIConfig struct {
	Provider     string        `env:"AI_PROVIDER" envDefault:"openai"`
	OpenAIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIURL    string        `env:"OPENAI_BASE_URL"`
	ImageModel   string        `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`
	GeminiKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	MaxTokens    int           `env:"AI_MAX_TOKENS" envDefault:"700"`
	Temperature  float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	Timeout      time.Duration `env:"AI_TIMEOUT" envDefault:"45s"`
	ImagesActive bool          `env:"AI_IMAGES_ENABLED" envDefault:"true"`
}

type SportsAPIConfig struct {
	BaseURL        string        `env:"SPORTS_API_URL" envDefault:"https://v3.football.api-sports.io"`
	APIKey         string        `env:"SPORTS_API_KEY"`
	Timeout        time.Duration `env:"SPORTS_API_TIMEOUT" envDefault:"30s"`
	RequestsPerMin int           `env:"SPORTS_API_RPM" envDefault:"30"`
}

type AutomationConfig struct {
	Timezone        string        `env:"AUTOMATION_TIMEZONE" envDefault:"UTC"`
	DueWindow       time.Duration `env:"AUTOMATION_DUE_WINDOW" envDefault:"10m"`
	FeedsFile       string        `env:"FEEDS_FILE" envDefault:"configs/feeds.yaml"`
	NewsMaxAge      time.Duration `env:"NEWS_MAX_AGE" envDefault:"36h"`
	NewsCacheTTL    time.Duration `env:"NEWS_CACHE_TTL" envDefault:"10m"`
	FetchWorkers    int           `env:"RSS_FETCH_WORKERS" envDefault:"6"`
	UniqueRetention time.Duration `env:"UNIQUENESS_RETENTION" envDefault:"720h"`
	LogRetention    time.Duration `env:"LOG_RETENTION" envDefault:"2160h"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Automation.Timezone); err != nil {
		return nil, fmt.Errorf("invalid AUTOMATION_TIMEZONE %q: %w", cfg.Automation.Timezone, err)
	}

	return cfg, nil
}

// Location returns the timezone automation slots are expressed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Automation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) DatabaseURL() string {
	// If DATABASE_URL is set, use it directly
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}
