// Package config loads the service configuration from the environment.
//
// A .env file in the working directory is read first (if present), then the
// process environment is parsed into Config. Real environment variables win
// over .env entries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is every setting the server reads at startup.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Storage
	DBDriver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"DB_PATH" envDefault:"data/interviews.db"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"interview_me"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Google sign-in (optional)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// LLM
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// Voice vendor
	VoiceAPIURL        string `env:"VOICE_API_URL" envDefault:"https://api.vapi.ai"`
	VoiceAPIKey        string `env:"VOICE_API_KEY"`
	VoiceWebhookSecret string `env:"VOICE_WEBHOOK_SECRET"`
	VoiceWorkflowID    string `env:"VOICE_WORKFLOW_ID"`
	PublicURL          string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	InterviewerConfig  string `env:"INTERVIEWER_CONFIG"`

	// Call sessions
	CallIdleTimeout     time.Duration `env:"CALL_IDLE_TIMEOUT" envDefault:"30s"`
	CallFeedbackTimeout time.Duration `env:"CALL_FEEDBACK_TIMEOUT" envDefault:"60s"`
	CallSessionTTL      time.Duration `env:"CALL_SESSION_TTL" envDefault:"30m"`

	// Transcript archive
	ArchiveDriver   string `env:"ARCHIVE_DRIVER" envDefault:"none"`
	ArchiveDir      string `env:"ARCHIVE_DIR" envDefault:"data/archive"`
	ArchiveS3Bucket string `env:"ARCHIVE_S3_BUCKET"`
	ArchiveS3Prefix string `env:"ARCHIVE_S3_PREFIX" envDefault:"interview-me"`
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Mail
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@interview-me.dev"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"Interview Me"`

	// Observability
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`

	// Rate limiting (per client, on write-heavy routes)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load reads .env (when present) and parses the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	return Parse()
}

// Parse builds a Config from the current process environment and validates it.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q must be sqlite or mongo", c.DBDriver))
	}

	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.ArchiveDriver {
	case "none", "local":
	case "s3":
		if c.ArchiveS3Bucket == "" {
			errs = append(errs, errors.New("ARCHIVE_S3_BUCKET is required for the s3 archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("ARCHIVE_DRIVER %q must be none, local or s3", c.ArchiveDriver))
	}

	if c.VoiceAPIKey != "" && len(c.VoiceWebhookSecret) < 16 {
		errs = append(errs, errors.New("VOICE_WEBHOOK_SECRET of at least 16 characters is required when VOICE_API_KEY is set"))
	}

	if c.CallIdleTimeout <= 0 {
		errs = append(errs, errors.New("CALL_IDLE_TIMEOUT must be positive"))
	}
	if c.CallFeedbackTimeout <= 0 {
		errs = append(errs, errors.New("CALL_FEEDBACK_TIMEOUT must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is fully configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleCallbackURL falls back to PUBLIC_URL when GOOGLE_REDIRECT_URL is unset.
func (c *Config) GoogleCallbackURL() string {
	if c.GoogleRedirectURL != "" {
		return c.GoogleRedirectURL
	}
	return strings.TrimRight(c.PublicURL, "/") + "/auth/google/callback"
}

// SlogLevel maps LOG_LEVEL onto a slog.Level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
