package openai

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/LevitatingBusinessMan/openai-go/stream"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Environment variables read by ConfigFromEnv.
const (
	EnvAPIKey       = "OPENAI_API_KEY"
	EnvBaseURL      = "OPENAI_BASE_URL"
	EnvOrganization = "OPENAI_ORG_ID"
)

// Config holds everything a Client needs. The zero value is not usable; start
// from DefaultConfig, LoadConfig or ConfigFromEnv.
type Config struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Organization string `yaml:"organization"`

	// Timeout bounds a blocking request end to end. For streams it only bounds
	// the wait for response headers; ctx bounds the rest. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// ChunkSize is the read size used when decoding streamed responses.
	ChunkSize int `yaml:"chunk_size"`

	// StrictValidation turns error-severity validation warnings into errors
	// returned before the request is sent.
	StrictValidation bool `yaml:"strict_validation"`

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client `yaml:"-"`

	// Logger receives debug and warning output. Nil discards everything.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a Config for the public API with the given key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		Timeout:   120 * time.Second,
		ChunkSize: stream.DefaultChunkSize,
	}
}

// LoadConfig reads a YAML config file and overlays it on DefaultConfig.
// An api_key missing from the file falls back to OPENAI_API_KEY.
//
// Example file:
//
//	base_url: http://localhost:8080/v1
//	timeout: 30s
//	strict_validation: true
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig(os.Getenv(EnvAPIKey))

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

// ConfigFromEnv builds a Config from OPENAI_API_KEY, OPENAI_BASE_URL and OPENAI_ORG_ID.
// Call LoadEnv first to pick up a .env file.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig(os.Getenv(EnvAPIKey))
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.Organization = os.Getenv(EnvOrganization)

	return cfg, cfg.Validate()
}

// Validate rejects a Config that cannot produce working requests.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrInvalidAPIKey
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ValidationError{Field: "base_url", Value: c.BaseURL, Reason: err.Error(), Err: ErrInvalidRequest}
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return &ValidationError{Field: "base_url", Value: c.BaseURL, Reason: "must be an absolute http(s) URL", Err: ErrInvalidRequest}
	}

	if c.Timeout < 0 {
		return &ValidationError{Field: "timeout", Value: c.Timeout, Reason: "must not be negative", Err: ErrInvalidRequest}
	}
	return nil
}

// LoadEnv searches for a .env file starting from the current directory
// and walking up the directory tree. It loads the first .env file found.
// Variables already set in the environment win over the file.
// If no .env file is found, it silently continues (using system env vars).
func LoadEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
