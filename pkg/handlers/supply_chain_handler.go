package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loomi-api/pkg/models"
	"loomi-api/pkg/services"
)

// SupplyChainHandler serves the supply-chain endpoints.
type SupplyChainHandler struct {
	service *services.SupplyChainService
}

// NewSupplyChainHandler creates a SupplyChainHandler.
func NewSupplyChainHandler(service *services.SupplyChainService) *SupplyChainHandler {
	return &SupplyChainHandler{service: service}
}

// CheckInventory handles POST /check-inventory.
func (h *SupplyChainHandler) CheckInventory(c *gin.Context) {
	var req models.InventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.CheckInventory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EstimateShipping handles POST /estimate-shipping.
func (h *SupplyChainHandler) EstimateShipping(c *gin.Context) {
	var req models.ShippingEstimateRequest
	if !bindJSON(c, &req) {
		return
	}
	estimate, err := h.service.EstimateShipping(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

// SupplyRisks handles GET /supply-risks.
func (h *SupplyChainHandler) SupplyRisks(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.SupplyRisks(c.Request.Context()))
}
