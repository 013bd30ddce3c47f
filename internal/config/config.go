// Package config loads the CLI configuration: hardcoded defaults, then an
// optional YAML file, then GENKAI_-prefixed environment variables, then
// command-line flags, each layer overriding the previous one.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	APIKey   string      `koanf:"api_key"`
	BaseURL  string      `koanf:"base_url"`
	LogLevel string      `koanf:"log_level"`
	Chat     ChatConfig  `koanf:"chat"`
	Retry    RetryConfig `koanf:"retry"`
}

type ChatConfig struct {
	Model            string   `koanf:"model"`
	Temperature      float64  `koanf:"temperature"`
	MaxFunctionCalls int      `koanf:"max_function_calls"`
	Functions        []string `koanf:"functions"`
}

type RetryConfig struct {
	MaxAttempts int    `koanf:"max_attempts"`
	Backoff     string `koanf:"backoff"`
}

const (
	DefaultLogLevel             = "info"
	DefaultChatModel            = "gemini-1.5-flash-latest"
	DefaultChatTemperature      = 0.7
	DefaultChatMaxFunctionCalls = 10
	DefaultRetryMaxAttempts     = 3
	DefaultRetryBackoff         = "500ms"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"log_level":               DefaultLogLevel,
		"chat.model":              DefaultChatModel,
		"chat.temperature":        DefaultChatTemperature,
		"chat.max_function_calls": DefaultChatMaxFunctionCalls,
		"retry.max_attempts":      DefaultRetryMaxAttempts,
		"retry.backoff":           DefaultRetryBackoff,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".genkai", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider("GENKAI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GENKAI_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Var if missing
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}
