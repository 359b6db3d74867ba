// Command llm_check sends one probe completion to the configured language
// model provider and prints the reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/app"
	"loomi-api/pkg/llm"
	"loomi-api/pkg/services"
)

func main() {
	message := flag.String("message", "Hello!", "probe message sent as the user turn")
	embed := flag.Bool("embed", false, "also request an embedding of the message")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
	}

	cfg := config.LoadConfig()
	app.SetupLogging(cfg)

	client, err := services.NewLLMClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("language model is not configured")
	}

	model := cfg.OpenAIModel
	if cfg.LLMProvider == services.ProviderAzure {
		model = cfg.AzureOpenAIChatDeploymentName
	}
	log.Info().Str("provider", cfg.LLMProvider).Str("model", model).Msg("sending probe completion")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout)
	defer cancel()

	start := time.Now()
	reply, err := client.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: *message}}, llm.CompletionOptions{
		Model:       model,
		MaxTokens:   services.ChatMaxTokens,
		Temperature: services.ChatTemperature,
	})
	if err != nil {
		log.Fatal().Err(err).Dur("elapsed", time.Since(start)).Msg("probe completion failed")
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("probe completion succeeded")
	fmt.Println(reply)

	if !*embed {
		return
	}
	vector, err := client.Embed(ctx, *message)
	if err != nil {
		log.Fatal().Err(err).Msg("probe embedding failed")
	}
	log.Info().Int("dimensions", len(vector)).Msg("probe embedding succeeded")
}
