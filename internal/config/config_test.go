package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Setenv("BACKEND_URL", "https://api.test.example.com")
	defer os.Unsetenv("BACKEND_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.BackendURL != "https://api.test.example.com" {
		t.Errorf("Expected BackendURL 'https://api.test.example.com', got '%s'", cfg.BackendURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("BACKEND_URL")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when BACKEND_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("BACKEND_URL", "https://api.test.example.com")
	defer os.Unsetenv("BACKEND_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}

	if cfg.SourceLanguage != "en" {
		t.Errorf("Expected default SourceLanguage 'en', got '%s'", cfg.SourceLanguage)
	}

	if cfg.SimplifyStrength != 0 {
		t.Errorf("Expected default SimplifyStrength 0, got %d", cfg.SimplifyStrength)
	}

	if cfg.FrameSize != 320 {
		t.Errorf("Expected default FrameSize 320, got %d", cfg.FrameSize)
	}

	if cfg.ReconnectMaxAttempts != 3 {
		t.Errorf("Expected default ReconnectMaxAttempts 3, got %d", cfg.ReconnectMaxAttempts)
	}

	if cfg.ReconnectDelayDuration() != 2*time.Second {
		t.Errorf("Expected default reconnect delay 2s, got %v", cfg.ReconnectDelayDuration())
	}

	if cfg.SaveTranscripts {
		t.Error("Expected SaveTranscripts to default to false")
	}
}

func TestLoad_InvalidSimplifyStrength(t *testing.T) {
	os.Setenv("BACKEND_URL", "https://api.test.example.com")
	os.Setenv("SIMPLIFY_STRENGTH", "4")
	defer os.Unsetenv("BACKEND_URL")
	defer os.Unsetenv("SIMPLIFY_STRENGTH")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for SIMPLIFY_STRENGTH out of range")
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("BACKEND_URL", "https://api.test.example.com")
	os.Setenv("TARGET_L1", "uk")
	os.Setenv("SIMPLIFY_STRENGTH", "2")
	os.Setenv("RECONNECT_MAX_ATTEMPTS", "5")
	defer func() {
		os.Unsetenv("BACKEND_URL")
		os.Unsetenv("TARGET_L1")
		os.Unsetenv("SIMPLIFY_STRENGTH")
		os.Unsetenv("RECONNECT_MAX_ATTEMPTS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TargetL1 != "uk" {
		t.Errorf("Expected TargetL1 'uk', got '%s'", cfg.TargetL1)
	}
	if cfg.SimplifyStrength != 2 {
		t.Errorf("Expected SimplifyStrength 2, got %d", cfg.SimplifyStrength)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("Expected ReconnectMaxAttempts 5, got %d", cfg.ReconnectMaxAttempts)
	}
}
