package provider

import (
	"github.com/crypticpy/COA-AI-Template/internal/config"
)

// New constructs the provider the configuration selects: Azure when an
// Azure endpoint is configured, otherwise the OpenAI-compatible client.
func New(cfg config.Config) Provider {
	if cfg.UseAzure() {
		return NewAzure(AzureOptions{
			Endpoint:            cfg.Azure.Endpoint,
			APIKey:              cfg.Azure.APIKey,
			ChatAPIVersion:      cfg.Azure.ChatAPIVersion,
			EmbeddingAPIVersion: cfg.Azure.EmbeddingAPIVersion,
			DeploymentChat:      cfg.Azure.DeploymentChat,
			DeploymentChatMini:  cfg.Azure.DeploymentChatMini,
			DeploymentEmbedding: cfg.Azure.DeploymentEmbedding,
		})
	}
	return NewCompat(CompatOptions{
		BaseURL:    cfg.Compat.BaseURL,
		APIKey:     cfg.Compat.APIKey,
		JSONSchema: cfg.Compat.JSONSchema,
		ChatModel:  cfg.Compat.ChatModel,
		EmbedModel: cfg.Compat.EmbedModel,
	})
}
