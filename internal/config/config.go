package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Azure       AzureConfig
	Compat      CompatConfig
	Retry       RetryConfig
	Auth        AuthConfig
	Log         LogConfig
	Webapp      WebappConfig
	Recovery    RecoveryConfig
	MCP         MCPConfig
	Environment string
	CORSOrigins string
}

type ServerConfig struct {
	Host string
	Port int
}

// AzureConfig carries the Azure OpenAI connection settings. The environment
// variable names match the original deployment contract, so an existing
// container environment keeps working unchanged.
type AzureConfig struct {
	Endpoint            string
	APIKey              string
	ChatAPIVersion      string
	EmbeddingAPIVersion string
	DeploymentChat      string
	DeploymentChatMini  string
	DeploymentEmbedding string
}

// CompatConfig points at a generic OpenAI-compatible endpoint for local
// development (LM Studio, Ollama's compat mode, a mock provider). ChatModel
// and EmbedModel name the models to use there; Azure has no equivalent
// because deployments are resolved from logical model names.
type CompatConfig struct {
	BaseURL    string
	APIKey     string
	JSONSchema bool
	ChatModel  string
	EmbedModel string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type AuthConfig struct {
	APIToken  string
	JWTSecret string
}

type LogConfig struct {
	Level string
}

type WebappConfig struct {
	Dir string
}

type RecoveryConfig struct {
	ResetAfter time.Duration
}

type MCPConfig struct {
	Enabled bool
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Azure: AzureConfig{
			ChatAPIVersion:      "2024-12-01-preview",
			EmbeddingAPIVersion: "2023-05-15",
			DeploymentChat:      "gpt-4.1",
			DeploymentChatMini:  "gpt-4.1-mini",
			DeploymentEmbedding: "text-embedding-ada-002",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Recovery: RecoveryConfig{
			ResetAfter: 5 * time.Second,
		},
		Environment: "development",
		CORSOrigins: "http://localhost:5173,http://localhost:3000",
	}
}

// Load reads configuration from a .env file (if present) and the process
// environment. Environment variables always win; the .env file is a
// development convenience and is never required.
//
// Provider credentials are mandatory: either the Azure pair
// (AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_KEY) or an OpenAI-compatible base
// URL (COA_COMPAT_BASE_URL) must be set.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (Config, error) {
	cfg := defaults()

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	azureSet := cfg.Azure.Endpoint != "" || cfg.Azure.APIKey != ""
	if azureSet {
		if cfg.Azure.Endpoint == "" {
			return fmt.Errorf("missing required config: AZURE_OPENAI_ENDPOINT (AZURE_OPENAI_KEY is set)")
		}
		if cfg.Azure.APIKey == "" {
			return fmt.Errorf("missing required config: AZURE_OPENAI_KEY (AZURE_OPENAI_ENDPOINT is set)")
		}
	} else if cfg.Compat.BaseURL == "" {
		return fmt.Errorf("missing required config: set AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_KEY, " +
			"or COA_COMPAT_BASE_URL for a local OpenAI-compatible endpoint")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}

	return nil
}

// UseAzure reports whether the Azure provider should be constructed.
// When false, the compat endpoint is used instead.
func (c Config) UseAzure() bool {
	return c.Azure.Endpoint != ""
}

// Origins returns the allowed CORS origins as a cleaned-up slice.
func (c Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
