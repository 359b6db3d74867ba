package models

import "time"

// --- Pricing ---

// PricingRequest is the input of a single dynamic price calculation.
type PricingRequest struct {
	ProductID    string  `json:"product_id" binding:"required"`
	CurrentPrice float64 `json:"current_price"`
	UserID       string  `json:"user_id,omitempty"`
}

// PricingFactors are the multipliers applied to the current price, rounded to 2 decimals.
type PricingFactors struct {
	Demand float64 `json:"demand"`
	Time   float64 `json:"time"`
}

// PricingResult is the outcome of a dynamic price calculation.
type PricingResult struct {
	ProductID       string         `json:"product_id"`
	OriginalPrice   float64        `json:"original_price"`
	DynamicPrice    float64        `json:"dynamic_price"`
	DiscountPercent float64        `json:"discount_percent"`
	Discount        float64        `json:"discount"` // legacy alias of discount_percent
	Factors         PricingFactors `json:"factors"`
}

// BulkPricingRequest prices several products in one call.
type BulkPricingRequest struct {
	Products         []PricingRequest       `json:"products"`
	MarketConditions map[string]interface{} `json:"market_conditions,omitempty"`
}

// BulkPricingResponse keeps the order of BulkPricingRequest.Products.
type BulkPricingResponse struct {
	Results          []PricingResult        `json:"results"`
	MarketConditions map[string]interface{} `json:"market_conditions,omitempty"`
}

// PopularProduct is a trending product inside a market category.
type PopularProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryTrend summarizes price and demand movement for one category.
type CategoryTrend struct {
	AveragePriceChange float64          `json:"average_price_change"`
	DemandChange       float64          `json:"demand_change"`
	PopularProducts    []PopularProduct `json:"popular_products"`
}

// MarketTrendsResponse is returned by GET /market-trends.
type MarketTrendsResponse struct {
	Trends map[string]CategoryTrend `json:"trends"`
	AsOf   string                   `json:"as_of"`
}

// --- Supply chain ---

// InventoryRequest asks whether a quantity of a product can be served.
type InventoryRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// SupplierAvailability is a supplier able to restock the product.
type SupplierAvailability struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	LeadTime             int    `json:"lead_time"`
	EstimatedRestockDate string `json:"estimated_restock_date"`
}

// InventoryStatus values.
const (
	InventoryInStock    = "in_stock"
	InventoryOutOfStock = "out_of_stock"
)

// InventoryResult is returned by POST /check-inventory.
type InventoryResult struct {
	ProductID    string                 `json:"product_id"`
	Status       string                 `json:"status"`
	Message      string                 `json:"message"`
	CurrentStock int                    `json:"current_stock"`
	Suppliers    []SupplierAvailability `json:"suppliers"`
}

// ShippingEstimateRequest describes a shipment to estimate.
type ShippingEstimateRequest struct {
	ProductIDs     []string `json:"product_ids"`
	DestinationZip string   `json:"destination_zip" binding:"required"`
	ShippingMethod string   `json:"shipping_method"`
}

// ShippingEstimate is returned by POST /estimate-shipping.
type ShippingEstimate struct {
	EstimatedDays  int      `json:"estimated_days"`
	DeliveryDate   string   `json:"delivery_date"`
	ShippingMethod string   `json:"shipping_method"`
	Products       []string `json:"products"`
}

// SupplyRisk is a known supply risk for a product category.
type SupplyRisk struct {
	ProductCategory      string `json:"product_category"`
	RiskLevel            string `json:"risk_level"`
	PrimaryRisk          string `json:"primary_risk"`
	AlternativeSuppliers int    `json:"alternative_suppliers"`
}

// SupplyRisksResponse is returned by GET /supply-risks.
type SupplyRisksResponse struct {
	Risks     []SupplyRisk `json:"risks"`
	UpdatedAt string       `json:"updated_at"`
}

// --- Assistant ---

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// ChatResponse represents the response from the chat API
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// ConversationTurn is one stored message of a conversation.
type ConversationTurn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id,omitempty"`
	Role           string    `json:"role"` // "user" or "assistant"
	Text           string    `json:"text"`
	Score          float32   `json:"score,omitempty"` // set on recall
	CreatedAt      time.Time `json:"created_at"`
}

// VisualSearchRequest searches the catalog for products similar to an image.
type VisualSearchRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
	UserID   string `json:"user_id,omitempty"`
}

// VisualSearchProduct is a visual search hit.
type VisualSearchProduct struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	Similarity float64 `json:"similarity"`
}

// VisualSearchResponse is returned by POST /visual-search.
type VisualSearchResponse struct {
	Products []VisualSearchProduct `json:"products"`
}

// EmotionAnalysisRequest carries free text to score.
type EmotionAnalysisRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// EmotionScores counts the sentiment keywords found in the text.
type EmotionScores struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// Sentiment values.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// EmotionAnalysisResult is returned by POST /analyze-emotion.
type EmotionAnalysisResult struct {
	Sentiment string        `json:"sentiment"`
	Scores    EmotionScores `json:"scores"`
}
