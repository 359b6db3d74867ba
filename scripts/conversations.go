//go:build ignore

// Maintains the Qdrant conversation collection.
//
//	go run scripts/conversations.go init
//	go run scripts/conversations.go delete <conversation-id>
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/app"
	"loomi-api/pkg/services"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: no .env.local or .env file: %v\n", err)
		}
	}

	cfg := config.LoadConfig()
	app.SetupLogging(cfg)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: conversations.go init | delete <conversation-id>")
		os.Exit(2)
	}
	if cfg.QdrantURL == "" {
		log.Fatal().Msg("QDRANT_URL is not set")
	}

	client, err := services.NewLLMClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("language model is required for embeddings")
	}
	store, err := services.NewConversationStore(client, cfg.QdrantURL, cfg.QdrantAPIKey, cfg.EmbeddingDimensions)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Qdrant")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "init":
		if err := store.EnsureCollection(ctx, 5, 2*time.Second); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize collection")
		}
		log.Info().Str("collection", services.ConversationCollection).Msg("collection ready")

	case "delete":
		if len(os.Args) < 3 {
			log.Fatal().Msg("conversation id is required")
		}
		id := os.Args[2]

		fmt.Printf("Delete every stored turn of conversation %s? (yes/no): ", id)
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "yes" {
			log.Info().Msg("cancelled")
			return
		}
		if err := store.DeleteConversation(ctx, id); err != nil {
			log.Fatal().Err(err).Msg("failed to delete conversation")
		}

	default:
		log.Fatal().Str("command", os.Args[1]).Msg("unknown command")
	}
}
