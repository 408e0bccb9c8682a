// Package config loads the proxy's process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"wca-openai-proxy/pkg/logging"
)

const (
	DefaultModelID      = "watson-ai"
	DefaultVersion      = "1.0.0"
	DefaultWCABaseURL   = "https://api.dataplatform.cloud.ibm.com/v2/wca/core/chat/text/generation"
	DefaultIAMURL       = "https://iam.cloud.ibm.com/identity/token"
	DefaultChunkSize    = 20
	DefaultChunkDelay   = 10 * time.Millisecond
	DefaultBackendTO    = 3 * time.Minute
	DefaultRequestTO    = 4 * time.Minute
	DefaultMaxBodyBytes = 2 << 20
)

// ErrMissingAPIKey is returned by RequireAPIKey when IAM_APIKEY is unset.
var ErrMissingAPIKey = errors.New("IAM_APIKEY environment variable is not set")

// Config is built once in main and passed by value; nothing mutates it
// afterwards.
type Config struct {
	APIKey string
	Host   string
	Port   string

	WCABaseURL string
	IAMURL     string

	ModelID string
	Version string

	ChunkSize      int
	ChunkDelay     time.Duration
	BackendTimeout time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	// AttachmentRoot, when set, confines file_list paths to this directory.
	AttachmentRoot string

	TokenCache string // "memory", "redis" or "none"
	RedisAddr  string

	// LogEnv and LogLevel come from ENV and LOG_LEVEL.
	LogEnv   string
	LogLevel string

	// SoftStart lets the server come up without an API key; the health
	// endpoint then reports unhealthy.
	SoftStart bool
}

// Load reads an optional .env file from the working directory and then the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		APIKey:         os.Getenv("IAM_APIKEY"),
		Host:           getenv("HOST", "0.0.0.0"),
		Port:           getenv("PORT", "5000"),
		WCABaseURL:     getenv("WCA_BASE_URL", DefaultWCABaseURL),
		IAMURL:         getenv("IAM_URL", DefaultIAMURL),
		ModelID:        getenv("MODEL_ID", DefaultModelID),
		Version:        getenv("PROXY_VERSION", DefaultVersion),
		AttachmentRoot: os.Getenv("ATTACHMENT_ROOT"),
		TokenCache:     getenv("TOKEN_CACHE", "memory"),
		RedisAddr:      getenv("REDIS_ADDR", "127.0.0.1:6379"),
		LogEnv:         os.Getenv("ENV"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.ChunkSize, err = getenvInt("STREAM_CHUNK_SIZE", DefaultChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkDelay, err = getenvDuration("STREAM_CHUNK_DELAY", DefaultChunkDelay); err != nil {
		return Config{}, err
	}
	if cfg.BackendTimeout, err = getenvDuration("BACKEND_TIMEOUT", DefaultBackendTO); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", DefaultRequestTO); err != nil {
		return Config{}, err
	}
	maxBody, err := getenvInt("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.SoftStart, err = getenvBool("SOFT_START", false); err != nil {
		return Config{}, err
	}

	if cfg.AttachmentRoot != "" {
		if cfg.AttachmentRoot, err = filepath.Abs(cfg.AttachmentRoot); err != nil {
			return Config{}, fmt.Errorf("ATTACHMENT_ROOT: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. A missing API key is not a validation error;
// see RequireAPIKey.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("STREAM_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkDelay < 0 {
		return fmt.Errorf("STREAM_CHUNK_DELAY must not be negative, got %s", c.ChunkDelay)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	switch c.TokenCache {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("TOKEN_CACHE must be memory, redis or none, got %q", c.TokenCache)
	}
	return nil
}

// RequireAPIKey fails unless an API key is configured or soft start is on.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" && !c.SoftStart {
		return ErrMissingAPIKey
	}
	return nil
}

// HasAPIKey reports whether backend credentials are configured.
func (c Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// LoggingOptions returns the logger settings, including any set in .env.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{Env: c.LogEnv, Level: c.LogLevel}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
