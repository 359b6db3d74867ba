package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loomi-api/pkg/models"
	"loomi-api/pkg/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PricingHandler serves the pricing engine endpoints.
type PricingHandler struct {
	service *services.PricingService
}

// NewPricingHandler creates a PricingHandler.
func NewPricingHandler(service *services.PricingService) *PricingHandler {
	return &PricingHandler{service: service}
}

// CalculatePrice handles POST /calculate-price.
func (h *PricingHandler) CalculatePrice(c *gin.Context) {
	var req models.PricingRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkPricing handles POST /bulk-pricing.
func (h *PricingHandler) BulkPricing(c *gin.Context) {
	var req models.BulkPricingRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CalculateBulk(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarketTrends handles GET /market-trends.
func (h *PricingHandler) MarketTrends(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.MarketTrends(c.Request.Context()))
}

// UploadPriceList handles POST /bulk-pricing/upload with a multipart "file"
// holding an .xlsx or .csv price list.
func (h *PricingHandler) UploadPriceList(c *gin.Context) {
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	products, err := h.service.ImportPriceList(file, fileHeader.Filename)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.service.CalculateBulk(c.Request.Context(), models.BulkPricingRequest{Products: products})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportPriceList handles POST /bulk-pricing/export and answers with a workbook.
func (h *PricingHandler) ExportPriceList(c *gin.Context) {
	var req models.BulkPricingRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CalculateBulk(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := h.service.ExportWorkbook(resp.Results)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="prices.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
