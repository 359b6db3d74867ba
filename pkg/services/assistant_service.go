package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/llm"
	"loomi-api/pkg/models"
)

// Chat completion settings.
const (
	DefaultChatModel   = "gpt-4"
	ChatTemperature    = 0.7
	ChatMaxTokens      = 500
	recalledTurnsLimit = 3
)

// ErrModelUnavailable is returned by Chat when no language model is configured.
var ErrModelUnavailable = errors.New("language model is not configured")

var (
	positiveWords = []string{"happy", "excited", "love", "great", "awesome"}
	negativeWords = []string{"angry", "sad", "hate", "terrible", "awful"}
)

// AssistantService answers shopper chats, image searches and sentiment requests.
type AssistantService struct {
	llm         llm.Client
	prompt      *config.AssistantPromptConfig
	products    []config.CatalogProduct
	model       string
	timeout     time.Duration
	userContext UserContextSource
	memory      ConversationMemory

	saves sync.WaitGroup
}

// NewAssistantService creates an AssistantService. client may be nil, in which
// case Chat only answers special commands.
func NewAssistantService(client llm.Client, prompt *config.AssistantPromptConfig, catalog *config.Catalog, model string, timeout time.Duration) *AssistantService {
	if model == "" {
		model = DefaultChatModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistantService{
		llm:      client,
		prompt:   prompt,
		products: catalog.VisualSearchProducts,
		model:    model,
		timeout:  timeout,
	}
}

// WithUserContext enables user context lookups.
func (s *AssistantService) WithUserContext(source UserContextSource) *AssistantService {
	s.userContext = source
	return s
}

// WithMemory enables conversation memory.
func (s *AssistantService) WithMemory(memory ConversationMemory) *AssistantService {
	s.memory = memory
	return s
}

// Chat answers a shopper message.
func (s *AssistantService) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return models.ChatResponse{}, errors.Wrap(ErrInvalidInput, "message is required")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if isSpecial, reply := s.prompt.CheckSpecialCommand(message); isSpecial {
		return models.ChatResponse{Response: reply, ConversationID: conversationID}, nil
	}

	if s.llm == nil {
		return models.ChatResponse{}, ErrModelUnavailable
	}

	userContext := s.lookupUserContext(ctx, req.UserID)

	var history []models.ConversationTurn
	if s.memory != nil && req.ConversationID != "" {
		turns, err := s.memory.Recall(ctx, conversationID, message, recalledTurnsLimit)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("conversation recall failed")
		} else {
			history = turns
		}
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.prompt.BuildSystemPrompt()},
		{Role: llm.RoleUser, Content: BuildUserPrompt(userContext, history, message)},
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.llm.Complete(llmCtx, messages, llm.CompletionOptions{
		Model:       s.model,
		MaxTokens:   ChatMaxTokens,
		Temperature: ChatTemperature,
	})
	if err != nil {
		return models.ChatResponse{}, errors.Wrap(err, "chat completion")
	}

	s.remember(ctx, conversationID, req.UserID, message, reply)

	return models.ChatResponse{Response: reply, ConversationID: conversationID}, nil
}

// BuildUserPrompt renders the user message sent to the model.
func BuildUserPrompt(userContext string, history []models.ConversationTurn, message string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("User context: %s\n", userContext))
	if len(history) > 0 {
		sb.WriteString("Related earlier messages:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", turn.Role, turn.Text))
		}
	}
	sb.WriteString(fmt.Sprintf("Current message: %s\n", message))
	return sb.String()
}

func (s *AssistantService) lookupUserContext(ctx context.Context, userID string) string {
	if userID == "" || s.userContext == nil {
		return ""
	}
	value, err := s.userContext.UserContext(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to fetch user context")
		return ""
	}
	return value
}

// remember stores both turns in the background.
func (s *AssistantService) remember(ctx context.Context, conversationID, userID, message, reply string) {
	if s.memory == nil {
		return
	}
	saveCtx := context.WithoutCancel(ctx)
	now := time.Now()
	turns := []models.ConversationTurn{
		{ConversationID: conversationID, UserID: userID, Role: llm.RoleUser, Text: message, CreatedAt: now},
		{ConversationID: conversationID, UserID: userID, Role: llm.RoleAssistant, Text: reply, CreatedAt: now},
	}

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(saveCtx, s.timeout)
		defer cancel()
		for _, turn := range turns {
			if err := s.memory.SaveTurn(ctx, turn); err != nil {
				log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to save conversation turn")
				return
			}
		}
	}()
}

// Wait blocks until pending conversation saves finish.
func (s *AssistantService) Wait() {
	s.saves.Wait()
}

// VisualSearch returns catalog products similar to the image, best match first.
func (s *AssistantService) VisualSearch(_ context.Context, req models.VisualSearchRequest) (models.VisualSearchResponse, error) {
	if err := validateImageURL(req.ImageURL); err != nil {
		return models.VisualSearchResponse{}, err
	}

	products := make([]models.VisualSearchProduct, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, models.VisualSearchProduct{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price,
			Image:      p.Image,
			Similarity: p.Similarity,
		})
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Similarity > products[j].Similarity
	})
	return models.VisualSearchResponse{Products: products}, nil
}

func validateImageURL(raw string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return errors.Wrapf(ErrInvalidInput, "image_url %q is not a valid URL", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidInput, "image_url %q must be an absolute http or https URL", raw)
	}
	return nil
}

// AnalyzeEmotion scores text by the sentiment keywords it contains.
func (s *AssistantService) AnalyzeEmotion(_ context.Context, req models.EmotionAnalysisRequest) models.EmotionAnalysisResult {
	return AnalyzeEmotion(req.Text)
}

// AnalyzeEmotion counts the positive and negative keywords present in text.
// Each keyword counts once, wherever it appears.
func AnalyzeEmotion(text string) models.EmotionAnalysisResult {
	lower := strings.ToLower(text)
	scores := models.EmotionScores{
		Positive: countPresent(lower, positiveWords),
		Negative: countPresent(lower, negativeWords),
	}

	sentiment := models.SentimentNeutral
	switch {
	case scores.Positive > scores.Negative:
		sentiment = models.SentimentPositive
	case scores.Negative > scores.Positive:
		sentiment = models.SentimentNegative
	}
	return models.EmotionAnalysisResult{Sentiment: sentiment, Scores: scores}
}

func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
