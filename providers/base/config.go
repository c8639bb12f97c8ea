package base

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Auto-load .env file if it exists (silent fail)
	_ = godotenv.Load()
}

// LoadEnv loads environment variables from specified .env files.
// If no files are specified, it loads from .env in the current directory.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

// DefaultRequestTimeout bounds one provider HTTP call. A timed-out provider
// call is fatal to the orchestration run.
const DefaultRequestTimeout = 60 * time.Second

// Config contains common configuration for all provider adapters.
type Config struct {
	APIKey  string
	BaseURL string

	// Generation options
	MaxOutputTokens *int
	Temperature     *float64

	// RequestTimeout bounds a single provider call. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Extra options
	ExtraHeaders map[string]string
	ExtraBody    map[string]any

	// DebugPath writes JSONL debug records (request/response) when set.
	DebugPath string
}

// Timeout returns the effective per-call timeout.
func (c Config) Timeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return DefaultRequestTimeout
}

// ApplyEnvDefaults applies environment variable defaults if config values are empty.
func ApplyEnvDefaults(cfg *Config, apiKeyEnv, baseURLEnv string) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(apiKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv(baseURLEnv)
	}
}
