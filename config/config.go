package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Invites     InviteConfig
	Leaderboard LeaderboardConfig
	RateLimit   RateLimitConfig
	Sheets      SheetsConfig
	Telegram    TelegramConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string `env:"PORT" envDefault:"8080"`
	ReadTimeout        int    `env:"READ_TIMEOUT_SEC" envDefault:"30"`
	WriteTimeout       int    `env:"WRITE_TIMEOUT_SEC" envDefault:"30"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"` // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"` // if set, used as-is
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"hackhub"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	ExpireHours int    `env:"JWT_EXPIRE_HOURS" envDefault:"24"`
}

// AWSConfig holds AWS credentials and S3 bucket names.
// An empty Region disables object storage.
type AWSConfig struct {
	Region               string `env:"AWS_REGION"`
	AccessKeyID          string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey      string `env:"AWS_SECRET_ACCESS_KEY"`
	ArtifactsBucket      string `env:"AWS_S3_ARTIFACTS_BUCKET" envDefault:"hackhub-artifacts"`
	CertificatesBucket   string `env:"AWS_S3_CERTIFICATES_BUCKET" envDefault:"hackhub-certificates"`
	PresignExpireMinutes int    `env:"AWS_PRESIGN_EXPIRE_MINUTES" envDefault:"15"`
}

// InviteConfig holds invite code lifetimes.
type InviteConfig struct {
	TeamTTL  time.Duration `env:"TEAM_INVITE_TTL" envDefault:"168h"`
	JudgeTTL time.Duration `env:"JUDGE_INVITE_TTL" envDefault:"336h"`
}

// LeaderboardConfig holds leaderboard cache settings.
type LeaderboardConfig struct {
	CacheTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"30s"`
}

// RateLimitConfig limits invite lookups per client IP.
type RateLimitConfig struct {
	InviteBurst     int     `env:"INVITE_RATE_LIMIT_BURST" envDefault:"10"`
	InvitePerMinute float64 `env:"INVITE_RATE_LIMIT_PER_MINUTE" envDefault:"20"`
}

// SheetsConfig enables registration export to Google Sheets when both fields are set.
type SheetsConfig struct {
	ServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"` // path to the key file
	SpreadsheetID      string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
}

// Enabled reports whether Sheets export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.ServiceAccountJSON != "" && c.SpreadsheetID != ""
}

// TelegramConfig enables the announcement mirror when both fields are set.
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Enabled reports whether announcements are mirrored to Telegram.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// PresignExpire returns the configured presign duration.
func (c AWSConfig) PresignExpire() time.Duration {
	if c.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PresignExpireMinutes) * time.Minute
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Server.CORSAllowedOrigins = strings.TrimSpace(cfg.Server.CORSAllowedOrigins)
	if cfg.Invites.TeamTTL <= 0 || cfg.Invites.JudgeTTL <= 0 {
		return nil, fmt.Errorf("invite ttl must be positive")
	}
	return &cfg, nil
}
