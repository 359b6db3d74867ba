package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loomi-api/pkg/models"
	"loomi-api/pkg/services"
)

// AssistantHandler serves the AI gateway endpoints.
type AssistantHandler struct {
	service *services.AssistantService
}

// NewAssistantHandler creates an AssistantHandler.
func NewAssistantHandler(service *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// Chat handles POST /chat.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VisualSearch handles POST /visual-search.
func (h *AssistantHandler) VisualSearch(c *gin.Context) {
	var req models.VisualSearchRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.VisualSearch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AnalyzeEmotion handles POST /analyze-emotion.
func (h *AssistantHandler) AnalyzeEmotion(c *gin.Context) {
	var req models.EmotionAnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.service.AnalyzeEmotion(c.Request.Context(), req))
}
