// Package config handles application configuration for the scanning core.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the scan core and its
// ambient HTTP layer.
type Config struct {
	// Server
	Port int

	// Provider registry
	ProviderYAMLPaths []string // one or more YAML documents (§4.C, §6)

	// Rate/concurrency controller (§4.B)
	GlobalConcurrency int           // G, default 6
	PerHostRate       float64       // R requests/second, default 2
	PerHostBurst      int           // B, default 4
	RateAcquireDeadline time.Duration // SCAN_RATE_ACQUIRE_DEADLINE, default 90s; not passed to the rate controller

	// Scan engine (§4.G)
	ScanDeadline time.Duration // job-wide deadline, default 180s

	// Job manager (§4.I)
	JobStoreCapacity int           // default 256
	JobRetention     time.Duration // default 30m after terminal state

	// Avatar clustering (§3)
	AvatarHashThreshold int // Hamming distance T, default 10

	// Face match (§3)
	FaceMatchDistance float64 // threshold D, default 0.6

	// Onion proxy (§4.A, §6)
	OnionSOCKSProxyURL string

	// Face-restoration external endpoint (§6)
	FaceRestoreEndpointURL string
	FaceRestoreSecret      string

	// Bespoke code drivers (§4.F)
	GitHubAPIToken string
	HIBPAPIToken   string

	// CORS (ambient HTTP layer)
	CORSOrigins []string
}

// Load reads configuration from environment variables, following the
// typed-getter pattern: defaults apply when a value is unset or does
// not parse; out-of-range values produce an error rather than a panic.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvInt("PORT", 8080),
		ProviderYAMLPaths: getEnvSlice("PROVIDER_YAML_PATHS", []string{"providers.yaml"}),

		GlobalConcurrency:   getEnvInt("SCAN_GLOBAL_CONCURRENCY", 6),
		PerHostRate:         getEnvFloat("SCAN_PER_HOST_RATE", 2.0),
		PerHostBurst:        getEnvInt("SCAN_PER_HOST_BURST", 4),
		RateAcquireDeadline: getEnvDuration("SCAN_RATE_ACQUIRE_DEADLINE", 90*time.Second),

		ScanDeadline: getEnvDuration("SCAN_DEADLINE", 180*time.Second),

		JobStoreCapacity: getEnvInt("JOB_STORE_CAPACITY", 256),
		JobRetention:     getEnvDuration("JOB_RETENTION", 30*time.Minute),

		AvatarHashThreshold: getEnvInt("AVATAR_HASH_THRESHOLD", 10),
		FaceMatchDistance:   getEnvFloat("FACE_MATCH_DISTANCE", 0.6),

		OnionSOCKSProxyURL: getEnv("ONION_SOCKS_PROXY_URL", ""),

		FaceRestoreEndpointURL: getEnv("FACE_RESTORE_ENDPOINT_URL", ""),
		FaceRestoreSecret:      getEnv("FACE_RESTORE_SECRET", ""),

		GitHubAPIToken: getEnv("GITHUB_API_TOKEN", ""),
		HIBPAPIToken:   getEnv("HIBP_API_TOKEN", ""),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.GlobalConcurrency < 1 || c.GlobalConcurrency > 64 {
		return fmt.Errorf("SCAN_GLOBAL_CONCURRENCY must be between 1 and 64, got %d", c.GlobalConcurrency)
	}
	if c.PerHostRate <= 0 {
		return fmt.Errorf("SCAN_PER_HOST_RATE must be positive, got %f", c.PerHostRate)
	}
	if c.PerHostBurst < 1 {
		return fmt.Errorf("SCAN_PER_HOST_BURST must be at least 1, got %d", c.PerHostBurst)
	}
	if c.JobStoreCapacity < 1 {
		return fmt.Errorf("JOB_STORE_CAPACITY must be at least 1, got %d", c.JobStoreCapacity)
	}
	if len(c.ProviderYAMLPaths) == 0 {
		return fmt.Errorf("PROVIDER_YAML_PATHS must name at least one file")
	}
	return nil
}

// FaceRestoreEnabled returns true if the external face-restoration
// endpoint is configured (§6).
func (c *Config) FaceRestoreEnabled() bool {
	return c.FaceRestoreEndpointURL != ""
}

// OnionProxyEnabled returns true if a SOCKS5h proxy is configured for
// .onion hosts (§4.A).
func (c *Config) OnionProxyEnabled() bool {
	return c.OnionSOCKSProxyURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
