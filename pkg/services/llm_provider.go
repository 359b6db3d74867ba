package services

import (
	"fmt"

	config "loomi-api/configs"
	"loomi-api/pkg/azure"
	"loomi-api/pkg/llm"
)

// LLM providers accepted in LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// NewLLMClient builds the language model client selected by cfg.LLMProvider.
func NewLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case ProviderAzure:
		if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIAPIKey == "" {
			return nil, fmt.Errorf("azure provider requires AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY")
		}
		return azure.NewOpenAIClient(
			cfg.AzureOpenAIEndpoint,
			cfg.AzureOpenAIAPIKey,
			cfg.AzureOpenAIAPIVersion,
			cfg.AzureOpenAIChatDeploymentName,
			cfg.AzureOpenAIEmbeddingDeploymentName,
			cfg.AzureOpenAIProxyURL,
			cfg.LLMTimeout,
		), nil
	case ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Organization:   cfg.OpenAIOrgID,
			BaseURL:        cfg.OpenAIBaseURL,
			EmbeddingModel: cfg.OpenAIEmbeddingModel,
			Timeout:        cfg.LLMTimeout,
			MaxRetries:     2,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
