package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	RateLimitRequests        int
	RateLimitWindowSeconds   int
	RateLimitBurst           int
	RateLimitCleanupSeconds  int
	BatchSize                int
	MaxFileSize              int64
	MaxConcurrentTasks       int
	AllowedFileTypes         string
	ExtractionTimeoutSeconds int

	UploadMaxInFlight int
	UploadQueueWaitMS int

	OCRFallbackURL    string
	OCRFallbackAPIKey string
	OCRTimeoutSeconds int

	NATSURL     string
	NATSSubject string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RateLimitRequests:        mustEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSeconds:   mustEnvInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:           mustEnvInt("RATE_LIMIT_BURST", 0),
		RateLimitCleanupSeconds:  mustEnvInt("RATE_LIMIT_CLEANUP_INTERVAL", 300),
		BatchSize:                mustEnvInt("BATCH_SIZE", 10),
		MaxFileSize:              int64(mustEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
		MaxConcurrentTasks:       mustEnvInt("MAX_CONCURRENT_TASKS", 5),
		AllowedFileTypes:         mustEnv("ALLOWED_FILE_TYPES", ".pdf"),
		ExtractionTimeoutSeconds: mustEnvInt("EXTRACTION_TIMEOUT_SECONDS", 60),

		UploadMaxInFlight: mustEnvInt("UPLOAD_MAX_IN_FLIGHT", 64),
		UploadQueueWaitMS: mustEnvInt("UPLOAD_QUEUE_WAIT_MS", 100),

		OCRFallbackURL:    mustEnv("OCR_FALLBACK_URL", ""),
		OCRFallbackAPIKey: mustEnv("OCR_FALLBACK_API_KEY", ""),
		OCRTimeoutSeconds: mustEnvInt("OCR_TIMEOUT_SECONDS", 120),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "pdf.activity"),
	}
}

// AllowedTypes splits the comma-separated extension list.
func (c Config) AllowedTypes() []string {
	parts := strings.Split(c.AllowedFileTypes, ",")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			types = append(types, part)
		}
	}
	return types
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) RateLimitCleanupInterval() time.Duration {
	return time.Duration(c.RateLimitCleanupSeconds) * time.Second
}

func (c Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSeconds) * time.Second
}

func (c Config) UploadQueueWait() time.Duration {
	return time.Duration(c.UploadQueueWaitMS) * time.Millisecond
}

func (c Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCRTimeoutSeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
