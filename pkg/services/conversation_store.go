package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"loomi-api/pkg/models"
)

// ConversationCollection is the Qdrant collection holding chat turns.
const ConversationCollection = "loomi_conversations"

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ConversationMemory stores chat turns and recalls related ones.
type ConversationMemory interface {
	SaveTurn(ctx context.Context, turn models.ConversationTurn) error
	Recall(ctx context.Context, conversationID, query string, limit uint64) ([]models.ConversationTurn, error)
}

// ConversationStore keeps conversation turns in Qdrant.
type ConversationStore struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	embedder    Embedder
	vectorSize  uint64
	conn        *grpc.ClientConn
}

// NewConversationStore connects to Qdrant at qdrantURL (host:port of the gRPC API).
// With an API key the connection uses TLS and sends the key with every call.
func NewConversationStore(embedder Embedder, qdrantURL, qdrantAPIKey string, vectorSize uint64) (*ConversationStore, error) {
	var dialOpts []grpc.DialOption

	if qdrantAPIKey != "" {
		log.Info().Str("url", qdrantURL).Msg("connecting to Qdrant Cloud over TLS")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))

		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		log.Info().Str("url", qdrantURL).Msg("connecting to local Qdrant without TLS")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant gRPC client: %w", err)
	}

	store := newConversationStore(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), embedder, vectorSize)
	store.conn = conn
	return store, nil
}

func newConversationStore(points qdrant.PointsClient, collections qdrant.CollectionsClient, embedder Embedder, vectorSize uint64) *ConversationStore {
	if vectorSize == 0 {
		vectorSize = 1536
	}
	return &ConversationStore{
		points:      points,
		collections: collections,
		embedder:    embedder,
		vectorSize:  vectorSize,
	}
}

// Close closes the gRPC connection.
func (s *ConversationStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection waits for Qdrant to answer and creates the collection when missing.
func (s *ConversationStore) EnsureCollection(ctx context.Context, maxRetries int, retryInterval time.Duration) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var (
		res     *qdrant.ListCollectionsResponse
		listErr error
	)
	for i := 0; i < maxRetries; i++ {
		listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		res, listErr = s.collections.List(listCtx, &qdrant.ListCollectionsRequest{})
		cancel()
		if listErr == nil {
			break
		}
		log.Warn().Err(listErr).Int("attempt", i+1).Int("max_attempts", maxRetries).Msg("Qdrant not ready")
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}
	if listErr != nil {
		return fmt.Errorf("failed to list Qdrant collections: %w", listErr)
	}

	for _, collection := range res.GetCollections() {
		if collection.GetName() == ConversationCollection {
			log.Debug().Str("collection", ConversationCollection).Msg("Qdrant collection exists")
			return nil
		}
	}

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.collections.Create(createCtx, &qdrant.CreateCollection{
		CollectionName: ConversationCollection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     s.vectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create Qdrant collection: %w", err)
	}
	log.Info().Str("collection", ConversationCollection).Uint64("vector_size", s.vectorSize).Msg("Qdrant collection created")
	return nil
}

// SaveTurn embeds the turn text and upserts it with its metadata.
func (s *ConversationStore) SaveTurn(ctx context.Context, turn models.ConversationTurn) error {
	vector, err := s.embedder.Embed(ctx, turn.Text)
	if err != nil {
		return fmt.Errorf("failed to embed conversation turn: %w", err)
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	payload := map[string]*qdrant.Value{
		"conversation_id": stringValue(turn.ConversationID),
		"user_id":         stringValue(turn.UserID),
		"role":            stringValue(turn.Role),
		"text":            stringValue(turn.Text),
		"timestamp":       stringValue(turn.CreatedAt.Format(time.RFC3339)),
	}

	wait := true
	_, err = s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ConversationCollection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: turn.ID},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: vector},
					},
				},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert conversation turn: %w", err)
	}
	return nil
}

// Recall returns up to limit turns of conversationID most similar to query.
func (s *ConversationStore) Recall(ctx context.Context, conversationID, query string, limit uint64) ([]models.ConversationTurn, error) {
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchResult, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: ConversationCollection,
		Vector:         queryVector,
		Limit:          limit,
		Filter:         conversationFilter(conversationID),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search conversation turns: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(searchResult.GetResult()))
	for _, point := range searchResult.GetResult() {
		payload := point.GetPayload()
		turn := models.ConversationTurn{
			ID:             point.GetId().GetUuid(),
			ConversationID: getStringFromPayload(payload, "conversation_id"),
			UserID:         getStringFromPayload(payload, "user_id"),
			Role:           getStringFromPayload(payload, "role"),
			Text:           getStringFromPayload(payload, "text"),
			Score:          point.GetScore(),
		}
		if ts, err := time.Parse(time.RFC3339, getStringFromPayload(payload, "timestamp")); err == nil {
			turn.CreatedAt = ts
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// DeleteConversation removes every stored turn of conversationID.
func (s *ConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ConversationCollection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: conversationFilter(conversationID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	log.Info().Str("conversation_id", conversationID).Msg("conversation deleted")
	return nil
}

func conversationFilter(conversationID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "conversation_id",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: conversationID},
						},
					},
				},
			},
		},
	}
}

func stringValue(v string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
}

func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok {
		return val.GetStringValue()
	}
	return ""
}
