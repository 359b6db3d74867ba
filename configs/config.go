package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	AIPort      string
	PricingPort string
	SupplyPort  string
	Environment string
	LogLevel    string

	APIKey             string
	AdminUsername      string
	AdminPassword      string
	CORSAllowedOrigins []string

	BackendURL string

	LLMProvider          string
	LLMTimeout           time.Duration
	OpenAIAPIKey         string
	OpenAIOrgID          string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string

	AzureOpenAIEndpoint                string
	AzureOpenAIAPIKey                  string
	AzureOpenAIAPIVersion              string
	AzureOpenAIChatDeploymentName      string
	AzureOpenAIEmbeddingDeploymentName string
	AzureOpenAIProxyURL                string

	RedisAddr      string
	RedisPassword  string
	UserContextTTL time.Duration

	QdrantURL           string
	QdrantAPIKey        string
	EmbeddingDimensions uint64

	PricingTimezone        string
	BulkPricingConcurrency int

	AssistantPromptFile string
	CatalogFile         string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		AIPort:      getEnv("AI_PORT", "5000"),
		PricingPort: getEnv("PRICING_PORT", "5001"),
		SupplyPort:  getEnv("SUPPLY_PORT", "5002"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		APIKey:             getEnv("API_KEY", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		BackendURL: getEnv("BACKEND_URL", "http://localhost:4000"),

		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMTimeout:           getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIOrgID:          getEnv("OPENAI_ORG_ID", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		AzureOpenAIEndpoint:                getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:                  getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:              getEnv("AZURE_OPENAI_API_VERSION", "2023-12-01-preview"),
		AzureOpenAIChatDeploymentName:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeploymentName: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", ""),
		AzureOpenAIProxyURL:                getEnv("AZURE_OPENAI_PROXY_URL", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		UserContextTTL: getEnvDuration("USER_CONTEXT_TTL", 5*time.Minute),

		QdrantURL:           getEnv("QDRANT_URL", ""),
		QdrantAPIKey:        getEnv("QDRANT_API_KEY", ""),
		EmbeddingDimensions: uint64(getEnvInt("EMBEDDING_DIMENSIONS", 1536)),

		PricingTimezone:        getEnv("PRICING_TIMEZONE", "Local"),
		BulkPricingConcurrency: getEnvInt("BULK_PRICING_CONCURRENCY", 8),

		AssistantPromptFile: getEnv("ASSISTANT_PROMPT_FILE", ""),
		CatalogFile:         getEnv("CATALOG_FILE", ""),
	}
}

// PricingLocation resolves PricingTimezone, falling back to the server's local zone.
func (c *Config) PricingLocation() *time.Location {
	if c.PricingTimezone == "" || strings.EqualFold(c.PricingTimezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.PricingTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsDevelopment reports whether the service runs in a local development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
