package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "environment", typ: kString, env: "ENVIRONMENT",
		apply:   func(cfg *Config, v any) { cfg.Environment = v.(string) },
		extract: func(cfg Config) any { return cfg.Environment },
	},
	{
		key: "cors.origins", typ: kString, env: "CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.CORSOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.CORSOrigins },
	},
	{
		key: "azure.endpoint", typ: kString, env: "AZURE_OPENAI_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Azure.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.Endpoint },
	},
	{
		key: "azure.api_key", typ: kString, env: "AZURE_OPENAI_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Azure.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.APIKey },
	},
	{
		key: "azure.chat_api_version", typ: kString, env: "AZURE_OPENAI_API_VERSION",
		apply:   func(cfg *Config, v any) { cfg.Azure.ChatAPIVersion = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.ChatAPIVersion },
	},
	{
		key: "azure.embedding_api_version", typ: kString, env: "AZURE_OPENAI_EMBEDDING_API_VERSION",
		apply:   func(cfg *Config, v any) { cfg.Azure.EmbeddingAPIVersion = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.EmbeddingAPIVersion },
	},
	{
		key: "azure.deployment_chat", typ: kString, env: "AZURE_OPENAI_DEPLOYMENT_CHAT",
		apply:   func(cfg *Config, v any) { cfg.Azure.DeploymentChat = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.DeploymentChat },
	},
	{
		key: "azure.deployment_chat_mini", typ: kString, env: "AZURE_OPENAI_DEPLOYMENT_CHAT_MINI",
		apply:   func(cfg *Config, v any) { cfg.Azure.DeploymentChatMini = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.DeploymentChatMini },
	},
	{
		key: "azure.deployment_embedding", typ: kString, env: "AZURE_OPENAI_DEPLOYMENT_EMBEDDING",
		apply:   func(cfg *Config, v any) { cfg.Azure.DeploymentEmbedding = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.DeploymentEmbedding },
	},
	{
		key: "compat.base_url", typ: kString, env: "COA_COMPAT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Compat.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Compat.BaseURL },
	},
	{
		key: "compat.api_key", typ: kString, env: "COA_COMPAT_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Compat.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Compat.APIKey },
	},
	{
		key: "compat.json_schema", typ: kBool, env: "COA_COMPAT_JSON_SCHEMA",
		apply:   func(cfg *Config, v any) { cfg.Compat.JSONSchema = v.(bool) },
		extract: func(cfg Config) any { return cfg.Compat.JSONSchema },
	},
	{
		key: "compat.chat_model", typ: kString, env: "COA_COMPAT_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Compat.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Compat.ChatModel },
	},
	{
		key: "compat.embed_model", typ: kString, env: "COA_COMPAT_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Compat.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Compat.EmbedModel },
	},
	{
		key: "retry.max_attempts", typ: kInt, env: "COA_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Retry.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Retry.MaxAttempts },
	},
	{
		key: "retry.base_delay", typ: kDuration, env: "COA_RETRY_BASE_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Retry.BaseDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Retry.BaseDelay },
	},
	{
		key: "retry.max_delay", typ: kDuration, env: "COA_RETRY_MAX_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Retry.MaxDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Retry.MaxDelay },
	},
	{
		key: "auth.api_token", typ: kString, env: "COA_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Auth.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.APIToken },
	},
	{
		key: "auth.jwt_secret", typ: kString, env: "COA_JWT_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Auth.JWTSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.JWTSecret },
	},
	{
		key: "log.level", typ: kString, env: "COA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "webapp.dir", typ: kString, env: "COA_WEBAPP_DIR",
		apply:   func(cfg *Config, v any) { cfg.Webapp.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Webapp.Dir },
	},
	{
		key: "recovery.reset_after", typ: kDuration, env: "COA_RECOVERY_RESET_AFTER",
		apply:   func(cfg *Config, v any) { cfg.Recovery.ResetAfter = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Recovery.ResetAfter },
	},
	{
		key: "mcp.enabled", typ: kBool, env: "COA_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.MCP.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Enabled },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
