package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the caption gateway
type Config struct {
	// Server configuration (health/readiness/metrics surface)
	Port string `envconfig:"PORT" default:"8080"`

	// Education backend configuration
	BackendURL   string `envconfig:"BACKEND_URL" required:"true"` // e.g. https://api.ab-esl.example.com
	SessionToken string `envconfig:"SESSION_TOKEN" default:""`    // opaque token forwarded in the start message

	// Caption stream configuration
	SampleRate       int    `envconfig:"SAMPLE_RATE" default:"16000"`      // Target capture rate in Hz
	SourceLanguage   string `envconfig:"SOURCE_LANGUAGE" default:"en"`     // Language spoken into the microphone
	TargetL1         string `envconfig:"TARGET_L1" default:""`             // Student first language for glossing (es, uk, ar, ...)
	SimplifyStrength int    `envconfig:"SIMPLIFY_STRENGTH" default:"0"`    // 0=off .. 3=maximum
	SaveTranscripts  bool   `envconfig:"SAVE_TRANSCRIPTS" default:"false"` // Opt in to server-side persistence

	// Audio processing configuration
	FrameSize   int    `envconfig:"AUDIO_FRAME_SIZE" default:"320"` // Samples per frame (20ms at 16kHz)
	AudioSource string `envconfig:"AUDIO_SOURCE" default:""`        // Path to a WAV file; empty means platform microphone

	// Resilience configuration
	ReconnectMaxAttempts int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"3"`  // Automatic reconnects after abnormal closure
	ReconnectDelay       int `envconfig:"RECONNECT_DELAY" default:"2000"`      // Fixed delay between attempts in milliseconds
	HTTPTimeout          int `envconfig:"HTTP_TIMEOUT" default:"30"`           // REST request timeout in seconds
	RetryMaxAttempts     int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`      // REST retry attempts
	RetryInitialBackoff  int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // Initial REST backoff in milliseconds

	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Local transcript store
	TranscriptDBPath string `envconfig:"TRANSCRIPT_DB_PATH" default:""` // Empty disables the local history store

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.SimplifyStrength < 0 || c.SimplifyStrength > 3 {
		return fmt.Errorf("SIMPLIFY_STRENGTH must be 0..3, got %d", c.SimplifyStrength)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("AUDIO_FRAME_SIZE must be positive, got %d", c.FrameSize)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be non-negative, got %d", c.ReconnectMaxAttempts)
	}
	return nil
}

// ReconnectDelayDuration returns the fixed reconnect delay as a time.Duration
func (c *Config) ReconnectDelayDuration() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Millisecond
}

// HTTPTimeoutDuration returns the REST request timeout as a time.Duration
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
