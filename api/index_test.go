package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("CATALOG_FILE", "")
	t.Setenv("ASSISTANT_PROMPT_FILE", "")

	for _, path := range []string{"/health", "/market-trends", "/supply-risks"} {
		w := httptest.NewRecorder()
		Handler(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Same(t, setupApp(), setupApp())
}

func TestUnavailableHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	unavailable(errors.New("bad catalog")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "bad catalog")
}
