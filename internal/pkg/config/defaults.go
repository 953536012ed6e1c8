package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 50
	DefaultCORSOrigin      = "*"

	// Processing defaults
	DefaultUploadTimeout   = 120 * time.Second
	DefaultCacheTTL        = 60 * time.Minute
	DefaultSessionTTL      = 12 * 60 * time.Minute
	DefaultCleanupInterval = 15 * time.Minute

	// Filter defaults
	DefaultSenderShareThreshold = 10.0
	DefaultLanguageSampleMin    = 20

	// Executor defaults
	DefaultExecutorPoolSize = 2

	// Logging defaults
	DefaultLogLevel = "info"
)
