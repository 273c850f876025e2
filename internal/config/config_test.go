package config

import (
	"os"
	"testing"
	"time"
)

// ========================================
// Helper Functions Tests
// ========================================

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_GET_ENV", "test_value")
	defer os.Unsetenv("TEST_GET_ENV")

	t.Run("existing env var", func(t *testing.T) {
		result := getEnv("TEST_GET_ENV", "default")
		if result != "test_value" {
			t.Errorf("getEnv() = %q, want %q", result, "test_value")
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnv("TEST_MISSING_VAR", "default_value")
		if result != "default_value" {
			t.Errorf("getEnv() = %q, want %q", result, "default_value")
		}
	})

	t.Run("empty env var", func(t *testing.T) {
		os.Setenv("TEST_EMPTY_VAR", "")
		defer os.Unsetenv("TEST_EMPTY_VAR")

		result := getEnv("TEST_EMPTY_VAR", "default")
		if result != "default" {
			t.Errorf("getEnv() = %q, want %q (empty should use default)", result, "default")
		}
	})
}

func TestGetEnvInt(t *testing.T) {
	t.Run("valid integer", func(t *testing.T) {
		os.Setenv("TEST_INT", "42")
		defer os.Unsetenv("TEST_INT")

		result := getEnvInt("TEST_INT", 0)
		if result != 42 {
			t.Errorf("getEnvInt() = %d, want 42", result)
		}
	})

	t.Run("invalid integer", func(t *testing.T) {
		os.Setenv("TEST_INT_INVALID", "not-a-number")
		defer os.Unsetenv("TEST_INT_INVALID")

		result := getEnvInt("TEST_INT_INVALID", 99)
		if result != 99 {
			t.Errorf("getEnvInt() = %d, want 99 (default)", result)
		}
	})

	t.Run("missing integer", func(t *testing.T) {
		result := getEnvInt("TEST_INT_MISSING", 7)
		if result != 7 {
			t.Errorf("getEnvInt() = %d, want 7 (default)", result)
		}
	})
}

func TestGetEnvFloat(t *testing.T) {
	t.Run("valid float", func(t *testing.T) {
		os.Setenv("TEST_FLOAT", "0.6")
		defer os.Unsetenv("TEST_FLOAT")

		result := getEnvFloat("TEST_FLOAT", 0)
		if result != 0.6 {
			t.Errorf("getEnvFloat() = %f, want 0.6", result)
		}
	})

	t.Run("invalid float", func(t *testing.T) {
		os.Setenv("TEST_FLOAT_INVALID", "nope")
		defer os.Unsetenv("TEST_FLOAT_INVALID")

		result := getEnvFloat("TEST_FLOAT_INVALID", 2.0)
		if result != 2.0 {
			t.Errorf("getEnvFloat() = %f, want 2.0 (default)", result)
		}
	})
}

func TestGetEnvDuration(t *testing.T) {
	t.Run("valid duration", func(t *testing.T) {
		os.Setenv("TEST_DURATION", "90s")
		defer os.Unsetenv("TEST_DURATION")

		result := getEnvDuration("TEST_DURATION", time.Second)
		if result != 90*time.Second {
			t.Errorf("getEnvDuration() = %v, want 90s", result)
		}
	})

	t.Run("invalid duration falls back to default", func(t *testing.T) {
		os.Setenv("TEST_DURATION_INVALID", "not-a-duration")
		defer os.Unsetenv("TEST_DURATION_INVALID")

		result := getEnvDuration("TEST_DURATION_INVALID", 5*time.Minute)
		if result != 5*time.Minute {
			t.Errorf("getEnvDuration() = %v, want 5m (default)", result)
		}
	})
}

func TestGetEnvSlice(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		os.Setenv("TEST_SLICE", "a.yaml,b.yaml")
		defer os.Unsetenv("TEST_SLICE")

		result := getEnvSlice("TEST_SLICE", nil)
		if len(result) != 2 || result[0] != "a.yaml" || result[1] != "b.yaml" {
			t.Errorf("getEnvSlice() = %v, want [a.yaml b.yaml]", result)
		}
	})

	t.Run("missing uses default", func(t *testing.T) {
		result := getEnvSlice("TEST_SLICE_MISSING", []string{"providers.yaml"})
		if len(result) != 1 || result[0] != "providers.yaml" {
			t.Errorf("getEnvSlice() = %v, want [providers.yaml]", result)
		}
	})
}

// ========================================
// Load Tests
// ========================================

func clearScanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "PROVIDER_YAML_PATHS", "SCAN_GLOBAL_CONCURRENCY",
		"SCAN_PER_HOST_RATE", "SCAN_PER_HOST_BURST", "SCAN_RATE_ACQUIRE_DEADLINE",
		"SCAN_DEADLINE", "JOB_STORE_CAPACITY", "JOB_RETENTION",
		"AVATAR_HASH_THRESHOLD", "FACE_MATCH_DISTANCE", "ONION_SOCKS_PROXY_URL",
		"FACE_RESTORE_ENDPOINT_URL", "FACE_RESTORE_SECRET",
		"GITHUB_API_TOKEN", "HIBP_API_TOKEN", "CORS_ORIGINS",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearScanEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.GlobalConcurrency != 6 {
		t.Errorf("GlobalConcurrency = %d, want 6", cfg.GlobalConcurrency)
	}
	if cfg.PerHostRate != 2.0 {
		t.Errorf("PerHostRate = %f, want 2.0", cfg.PerHostRate)
	}
	if cfg.PerHostBurst != 4 {
		t.Errorf("PerHostBurst = %d, want 4", cfg.PerHostBurst)
	}
	if cfg.ScanDeadline != 180*time.Second {
		t.Errorf("ScanDeadline = %v, want 180s", cfg.ScanDeadline)
	}
	if cfg.JobStoreCapacity != 256 {
		t.Errorf("JobStoreCapacity = %d, want 256", cfg.JobStoreCapacity)
	}
	if cfg.AvatarHashThreshold != 10 {
		t.Errorf("AvatarHashThreshold = %d, want 10", cfg.AvatarHashThreshold)
	}
	if cfg.FaceMatchDistance != 0.6 {
		t.Errorf("FaceMatchDistance = %f, want 0.6", cfg.FaceMatchDistance)
	}
	if cfg.OnionProxyEnabled() {
		t.Error("OnionProxyEnabled() = true, want false with no proxy configured")
	}
	if cfg.FaceRestoreEnabled() {
		t.Error("FaceRestoreEnabled() = true, want false with no endpoint configured")
	}
}

func TestLoad_InvalidConcurrencyRejected(t *testing.T) {
	clearScanEnv(t)
	os.Setenv("SCAN_GLOBAL_CONCURRENCY", "0")
	defer os.Unsetenv("SCAN_GLOBAL_CONCURRENCY")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for SCAN_GLOBAL_CONCURRENCY=0, got nil")
	}
}

func TestLoad_InvalidPerHostRateRejected(t *testing.T) {
	clearScanEnv(t)
	os.Setenv("SCAN_PER_HOST_RATE", "0")
	defer os.Unsetenv("SCAN_PER_HOST_RATE")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for SCAN_PER_HOST_RATE=0, got nil")
	}
}

func TestLoad_FaceRestoreEnabledWhenURLSet(t *testing.T) {
	clearScanEnv(t)
	os.Setenv("FACE_RESTORE_ENDPOINT_URL", "https://restore.internal/api")
	defer os.Unsetenv("FACE_RESTORE_ENDPOINT_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.FaceRestoreEnabled() {
		t.Error("FaceRestoreEnabled() = false, want true")
	}
}
