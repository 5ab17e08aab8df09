package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig holds HTTP server and report settings.
type ServerConfig struct {
	Port            string
	ReportDir       string
	ShutdownTimeout time.Duration
}

// ClassifierConfig defines engines, models and call limits.
type ClassifierConfig struct {
	PrimaryEngine   string // "openai"|"anthropic"
	SecondaryEngine string // "anthropic"|"openai"|"" to disable
	OpenAIKey       string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicKey    string
	AnthropicModel  string
	AnthropicURL    string
	Timeout         time.Duration
	Attempts        int
	RetryDelay      time.Duration
	RenderDPI       float64
	MaxPages        int
	MaxInflight     int
	Cooldown        time.Duration
	MaxCooldown     time.Duration
}

// RedisConfig defines job status and usage storage.
type RedisConfig struct {
	Enabled   bool
	URL       string
	ResultTTL time.Duration
}

// MirrorConfig defines the optional S3 copy of produced files.
type MirrorConfig struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// SplitConfig tunes filesystem housekeeping.
type SplitConfig struct {
	TempMaxAge time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging    LoggingConfig
	Axiom      AxiomConfig
	Server     ServerConfig
	Classifier ClassifierConfig
	Redis      RedisConfig
	Mirror     MirrorConfig
	Split      SplitConfig
}

// Load reads an optional .env file, then the environment. Variables that
// are already set win over the file.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfsplitter.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfsplitter",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "5000"),
		ReportDir:       getEnv("REPORT_DIR", "reports"),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Classifier = ClassifierConfig{
		PrimaryEngine:   strings.ToLower(getEnv("PRIMARY_ENGINE", "openai")),
		SecondaryEngine: strings.ToLower(getEnv("SECONDARY_ENGINE", "anthropic")),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AnthropicURL:    getEnv("ANTHROPIC_BASE_URL", ""),
		Timeout:         parseDuration(getEnv("CLASSIFIER_TIMEOUT", "180s"), 180*time.Second),
		Attempts:        parseInt(getEnv("CLASSIFIER_ATTEMPTS", "1"), 1),
		RetryDelay:      parseDuration(getEnv("CLASSIFIER_RETRY_DELAY", "2s"), 2*time.Second),
		RenderDPI:       parseFloat(getEnv("RENDER_DPI", "144"), 144),
		MaxPages:        parseInt(getEnv("CLASSIFIER_MAX_PAGES", "0"), 0),
		MaxInflight:     parseInt(getEnv("CLASSIFIER_MAX_INFLIGHT", "2"), 2),
		Cooldown:        parseDuration(getEnv("CLASSIFIER_COOLDOWN", "30s"), 30*time.Second),
		MaxCooldown:     parseDuration(getEnv("CLASSIFIER_MAX_COOLDOWN", "5m"), 5*time.Minute),
	}
	if cfg.Classifier.Attempts < 1 {
		cfg.Classifier.Attempts = 1
	}
	if cfg.Classifier.SecondaryEngine == cfg.Classifier.PrimaryEngine || cfg.Classifier.SecondaryEngine == "none" {
		cfg.Classifier.SecondaryEngine = ""
	}

	cfg.Redis = RedisConfig{
		Enabled:   parseBool(getEnv("REDIS_ENABLED", "false")),
		URL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		ResultTTL: parseDuration(getEnv("JOB_RESULT_TTL", "168h"), 7*24*time.Hour),
	}

	cfg.Mirror = MirrorConfig{
		Enabled:   parseBool(getEnv("S3_MIRROR_ENABLED", "false")),
		Bucket:    getEnv("AWS_S3_BUCKET", ""),
		Prefix:    getEnv("S3_MIRROR_PREFIX", "splits"),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}
	if cfg.Mirror.Bucket == "" {
		cfg.Mirror.Enabled = false
	}

	cfg.Split = SplitConfig{
		TempMaxAge: parseDuration(getEnv("TEMP_MAX_AGE", "1h"), time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
