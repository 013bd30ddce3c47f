package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("Expected default log level %s, got %s", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Chat.Model != DefaultChatModel {
		t.Errorf("Expected default model %s, got %s", DefaultChatModel, cfg.Chat.Model)
	}
	if cfg.Chat.Temperature != DefaultChatTemperature {
		t.Errorf("Expected default temperature %v, got %v", DefaultChatTemperature, cfg.Chat.Temperature)
	}
	if cfg.Chat.MaxFunctionCalls != DefaultChatMaxFunctionCalls {
		t.Errorf("Expected default max function calls %d, got %d", DefaultChatMaxFunctionCalls, cfg.Chat.MaxFunctionCalls)
	}
	if cfg.Retry.MaxAttempts != DefaultRetryMaxAttempts {
		t.Errorf("Expected default retry max attempts %d, got %d", DefaultRetryMaxAttempts, cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Backoff != DefaultRetryBackoff {
		t.Errorf("Expected default retry backoff %s, got %s", DefaultRetryBackoff, cfg.Retry.Backoff)
	}
	if cfg.APIKey != "" {
		t.Errorf("Expected empty api key, got %s", cfg.APIKey)
	}
}

func TestLoadWithConfigFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
api_key: file-key
chat:
  model: custom-model
  max_function_calls: 4
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("failed to load config with --config: %v", err)
	}

	if cfg.APIKey != "file-key" {
		t.Fatalf("expected api key file-key, got %s", cfg.APIKey)
	}
	if cfg.Chat.Model != "custom-model" {
		t.Fatalf("expected model custom-model, got %s", cfg.Chat.Model)
	}
	if cfg.Chat.MaxFunctionCalls != 4 {
		t.Fatalf("expected max function calls 4, got %d", cfg.Chat.MaxFunctionCalls)
	}
}

func TestLoadWithMissingConfigFlagReturnsError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	if _, err := Load(cmd); err == nil {
		t.Fatal("expected error when --config points to missing file")
	}
}

func TestLoadInjectsGeminiAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("expected api key from GEMINI_API_KEY, got %s", cfg.APIKey)
	}
}
