package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "loomi-api/configs"
	"loomi-api/pkg/llm"
	"loomi-api/pkg/models"
)

type fakeLLM struct {
	reply    string
	err      error
	messages []llm.Message
	opts     llm.CompletionOptions
	calls    int
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	f.calls++
	f.messages = messages
	f.opts = opts
	return f.reply, f.err
}

func (f *fakeLLM) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

type fakeMemory struct {
	mu       sync.Mutex
	recalled []models.ConversationTurn
	saved    []models.ConversationTurn
	recalls  int
}

func (f *fakeMemory) SaveTurn(_ context.Context, turn models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, turn)
	return nil
}

func (f *fakeMemory) Recall(_ context.Context, _, _ string, _ uint64) ([]models.ConversationTurn, error) {
	f.recalls++
	return f.recalled, nil
}

func newTestAssistant(t *testing.T, client llm.Client) *AssistantService {
	t.Helper()
	prompt, err := config.LoadAssistantPrompt("")
	require.NoError(t, err)
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	return NewAssistantService(client, prompt, catalog, "", time.Second)
}

func TestChatBuildsPrompt(t *testing.T) {
	model := &fakeLLM{reply: "Try the blue denim jeans."}
	source := &fakeContextSource{value: "likes denim"}
	memory := &fakeMemory{recalled: []models.ConversationTurn{{Role: "user", Text: "I need jeans"}}}
	svc := newTestAssistant(t, model).WithUserContext(source).WithMemory(memory)

	resp, err := svc.Chat(context.Background(), models.ChatRequest{
		Message:        "Anything in blue?",
		ConversationID: "c-1",
		UserID:         "u-1",
	})
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "Try the blue denim jeans.", resp.Response)
	assert.Equal(t, "c-1", resp.ConversationID)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llm.RoleSystem, model.messages[0].Role)
	assert.True(t, strings.HasPrefix(model.messages[0].Content, "You are Loomi, "))
	assert.Equal(t, llm.RoleUser, model.messages[1].Role)
	assert.Contains(t, model.messages[1].Content, "User context: likes denim")
	assert.Contains(t, model.messages[1].Content, "- user: I need jeans")
	assert.Contains(t, model.messages[1].Content, "Current message: Anything in blue?")
	assert.Equal(t, llm.CompletionOptions{Model: "gpt-4", MaxTokens: 500, Temperature: 0.7}, model.opts)

	require.Len(t, memory.saved, 2)
	assert.Equal(t, llm.RoleUser, memory.saved[0].Role)
	assert.Equal(t, "Anything in blue?", memory.saved[0].Text)
	assert.Equal(t, llm.RoleAssistant, memory.saved[1].Role)
	assert.Equal(t, "c-1", memory.saved[1].ConversationID)
}

func TestChatNewConversation(t *testing.T) {
	model := &fakeLLM{reply: "Hello!"}
	memory := &fakeMemory{}
	svc := newTestAssistant(t, model).WithMemory(memory)

	resp, err := svc.Chat(context.Background(), models.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	svc.Wait()

	assert.Len(t, resp.ConversationID, 36)
	assert.Equal(t, 0, memory.recalls)
	assert.Contains(t, model.messages[1].Content, "User context: \n")
}

func TestChatIgnoresUserContextFailure(t *testing.T) {
	model := &fakeLLM{reply: "ok"}
	svc := newTestAssistant(t, model).WithUserContext(&fakeContextSource{err: errors.New("backend down")})

	resp, err := svc.Chat(context.Background(), models.ChatRequest{Message: "hi", UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
}

func TestChatHelpCommand(t *testing.T) {
	model := &fakeLLM{reply: "unused"}
	svc := newTestAssistant(t, model)

	resp, err := svc.Chat(context.Background(), models.ChatRequest{Message: "/help"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "I'm Loomi")
	assert.Equal(t, 0, model.calls)
}

func TestChatErrors(t *testing.T) {
	_, err := newTestAssistant(t, &fakeLLM{}).Chat(context.Background(), models.ChatRequest{Message: "   "})
	assert.True(t, pkgerrors.Is(err, ErrInvalidInput))

	_, err = newTestAssistant(t, nil).Chat(context.Background(), models.ChatRequest{Message: "hello"})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	failing := &fakeLLM{err: errors.New("rate limited")}
	_, err = newTestAssistant(t, failing).Chat(context.Background(), models.ChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.False(t, pkgerrors.Is(err, ErrInvalidInput))
}

func TestVisualSearch(t *testing.T) {
	svc := newTestAssistant(t, nil)
	svc.products = append(svc.products, config.CatalogProduct{ID: "3", Name: "Canvas Tote", Similarity: 0.95})

	resp, err := svc.VisualSearch(context.Background(), models.VisualSearchRequest{ImageURL: "https://cdn.example.com/shirt.png"})
	require.NoError(t, err)
	require.Len(t, resp.Products, 3)
	assert.Equal(t, "3", resp.Products[0].ID)
	assert.Equal(t, "1", resp.Products[1].ID)
	assert.Equal(t, "Striped Cotton T-Shirt", resp.Products[1].Name)
	assert.Equal(t, 29.99, resp.Products[1].Price)
	assert.Equal(t, "2", resp.Products[2].ID)

	for _, raw := range []string{"", "not a url", "/relative/path.png", "ftp://example.com/a.png", "http://"} {
		_, err := svc.VisualSearch(context.Background(), models.VisualSearchRequest{ImageURL: raw})
		assert.True(t, pkgerrors.Is(err, ErrInvalidInput), "url %q", raw)
	}
}

func TestAnalyzeEmotion(t *testing.T) {
	testCases := []struct {
		text      string
		sentiment string
		positive  int
		negative  int
	}{
		{"I LOVE this, it is awesome", models.SentimentPositive, 2, 0},
		{"terrible and awful, I hate it", models.SentimentNegative, 0, 3},
		{"great but sad", models.SentimentNeutral, 1, 1},
		{"", models.SentimentNeutral, 0, 0},
		{"love love love", models.SentimentPositive, 1, 0},
		{"unhappy", models.SentimentPositive, 1, 0},
	}

	for _, tc := range testCases {
		result := AnalyzeEmotion(tc.text)
		assert.Equal(t, tc.sentiment, result.Sentiment, tc.text)
		assert.Equal(t, models.EmotionScores{Positive: tc.positive, Negative: tc.negative}, result.Scores, tc.text)
	}
}
