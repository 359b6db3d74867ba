package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// UserContextSource resolves a short description of a user's shopping context.
type UserContextSource interface {
	UserContext(ctx context.Context, userID string) (string, error)
}

// BackendClient reads user context from the commerce backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a BackendClient for baseURL.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BackendClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UserContext implements UserContextSource via GET {baseURL}/users/{id}/context.
func (b *BackendClient) UserContext(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/context", b.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch user context")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("backend returned status %d for user %s", resp.StatusCode, userID)
	}

	var body struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode user context")
	}
	return body.Context, nil
}

// ContextCache stores user context strings.
type ContextCache interface {
	Get(ctx context.Context, userID string) (value string, found bool, err error)
	Set(ctx context.Context, userID, value string) error
}

// RedisContextCache is a ContextCache backed by Redis.
type RedisContextCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisContextCache creates a cache on the Redis server at addr.
func NewRedisContextCache(addr, password string, ttl time.Duration) *RedisContextCache {
	return &RedisContextCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
		ttl: ttl,
	}
}

// Ping verifies connectivity and credentials.
func (r *RedisContextCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisContextCache) Close() error {
	return r.client.Close()
}

func userContextKey(userID string) string {
	return "user_context:" + userID
}

// Get implements ContextCache.
func (r *RedisContextCache) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := r.client.Get(ctx, userContextKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set implements ContextCache.
func (r *RedisContextCache) Set(ctx context.Context, userID, value string) error {
	return r.client.Set(ctx, userContextKey(userID), value, r.ttl).Err()
}

// CachedUserContext serves user context from a cache before asking the source.
// Cache failures are logged and bypassed.
type CachedUserContext struct {
	source UserContextSource
	cache  ContextCache
}

// NewCachedUserContext wraps source with cache.
func NewCachedUserContext(source UserContextSource, cache ContextCache) *CachedUserContext {
	return &CachedUserContext{source: source, cache: cache}
}

// UserContext implements UserContextSource.
func (c *CachedUserContext) UserContext(ctx context.Context, userID string) (string, error) {
	value, found, err := c.cache.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("user context cache read failed")
	} else if found {
		return value, nil
	}

	value, err = c.source.UserContext(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, userID, value); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("user context cache write failed")
	}
	return value, nil
}
