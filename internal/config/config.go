package config

import (
	"fmt"
	"os"
	"time"

	"invscan/internal/logger"
	"invscan/internal/lookup"
)

// Config carries all environment-driven settings. Only the logging fields
// are always used; the rest gate optional pipeline stages, which the
// commands enable when their settings are present.
type Config struct {
	// Verification service configuration
	LookupBaseURL string
	LookupAppID   string
	LookupAPIKey  string
	LookupTimeout time.Duration

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Text recognition configuration
	OCREngine string // "vision" or "documentai"

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		LookupBaseURL:         getEnv("LOOKUP_BASE_URL", ""),
		LookupAppID:           getEnv("LOOKUP_APP_ID", ""),
		LookupAPIKey:          getEnv("LOOKUP_API_KEY", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OCREngine:             getEnv("OCR_ENGINE", "vision"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	timeout, err := time.ParseDuration(getEnv("LOOKUP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: invalid LOOKUP_TIMEOUT: %w", err)
	}
	config.LookupTimeout = timeout

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.OCREngine != "vision" && c.OCREngine != "documentai" {
		return fmt.Errorf("OCR_ENGINE must be \"vision\" or \"documentai\", got %q", c.OCREngine)
	}
	if c.OCREngine == "documentai" && c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when OCR_ENGINE is documentai")
	}
	// Lookup credentials come as a pair or not at all.
	if (c.LookupAppID == "") != (c.LookupAPIKey == "") {
		return fmt.Errorf("LOOKUP_APP_ID and LOOKUP_API_KEY must both be set to enable verification")
	}
	return nil
}

// LookupEnabled reports whether the verification service is configured.
func (c *Config) LookupEnabled() bool {
	return c.LookupAppID != "" && c.LookupAPIKey != ""
}

// GetLookupConfig returns the verification client configuration.
func (c *Config) GetLookupConfig() lookup.Config {
	return lookup.Config{
		BaseURL: c.LookupBaseURL,
		AppID:   c.LookupAppID,
		APIKey:  c.LookupAPIKey,
		Timeout: c.LookupTimeout,
	}
}

// GetLoggerConfig returns a logger configuration from the main config.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
