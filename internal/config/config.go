// Package config loads settings from environment variables with an
// optional YAML overlay file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Embedding providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	StoreURL       string `yaml:"store_url"`
	StoreNamespace string `yaml:"store_namespace"`
	StoreDatabase  string `yaml:"store_database"`
	StoreUser      string `yaml:"store_user"`
	StorePass      string `yaml:"store_pass"`
	StoreAuthLevel string `yaml:"store_auth_level"`

	// Embedding
	EmbedProvider  string `yaml:"embed_provider"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	OllamaHost     string `yaml:"ollama_host"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`

	// Title generation
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Sync
	SyncBatchSize int    `yaml:"sync_batch_size"`
	DaemonCron    string `yaml:"daemon_cron"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Raw log level string, resolved into LogLevel after loading.
	LogLevelName string `yaml:"log_level"`
}

// Load reads configuration from environment variables, then applies the
// YAML file named by HINDSIGHT_CONFIG (if any) on top.
func Load() (Config, error) {
	cfg := Config{
		StoreURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		StoreNamespace: getEnv("SURREALDB_NAMESPACE", "hindsight"),
		StoreDatabase:  getEnv("SURREALDB_DATABASE", "transcripts"),
		StoreUser:      getEnv("SURREALDB_USER", "root"),
		StorePass:      getEnv("SURREALDB_PASS", "root"),
		StoreAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("HINDSIGHT_EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("HINDSIGHT_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("HINDSIGHT_EMBED_DIMENSION", 384),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),

		LLMProvider:     getEnv("HINDSIGHT_LLM_PROVIDER", ProviderNone),
		LLMModel:        getEnv("HINDSIGHT_LLM_MODEL", "llama3.2"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		SyncBatchSize: getEnvInt("HINDSIGHT_SYNC_BATCH_SIZE", 100),
		DaemonCron:    getEnv("HINDSIGHT_DAEMON_CRON", "*/15 * * * *"),

		LogFile:      getEnv("HINDSIGHT_LOG_FILE", "/tmp/hindsight.log"),
		LogLevelName: getEnv("HINDSIGHT_LOG_LEVEL", "INFO"),
	}

	if path := os.Getenv("HINDSIGHT_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
