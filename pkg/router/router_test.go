package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "loomi-api/configs"
	"loomi-api/pkg/handlers"
	"loomi-api/pkg/llm"
	"loomi-api/pkg/models"
	"loomi-api/pkg/pricing"
	"loomi-api/pkg/services"
)

type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, messages []llm.Message, _ llm.CompletionOptions) (string, error) {
	return "echo: " + messages[len(messages)-1].Content, nil
}

func (echoLLM) Embed(_ context.Context, _ string) ([]float32, error) { return nil, nil }

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		APIKey:        "test-key",
		AdminUsername: "admin",
		AdminPassword: "password",
	}
}

func testServices(t *testing.T, monitoring *services.MonitoringService) Services {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	prompt, err := config.LoadAssistantPrompt("")
	require.NoError(t, err)

	calc := pricing.NewCalculator(pricing.FixedFactors{Demand: 0.8, Time: 0.9})
	return Services{
		Pricing:     services.NewPricingService(calc, catalog.MarketCategories, 2, monitoring),
		SupplyChain: services.NewSupplyChainService(catalog),
		Assistant:   services.NewAssistantService(echoLLM{}, prompt, catalog, "", time.Second),
	}
}

func do(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGatewayRoutes(t *testing.T) {
	monitoring := services.NewMonitoringService(GatewayService, time.UTC)
	var maintenance atomic.Bool
	r := NewGateway(testConfig(), monitoring, &maintenance, testServices(t, monitoring))

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"calculate price", http.MethodPost, "/calculate-price", models.PricingRequest{ProductID: "p", CurrentPrice: 100}, http.StatusOK},
		{"bulk pricing", http.MethodPost, "/bulk-pricing", models.BulkPricingRequest{}, http.StatusOK},
		{"market trends", http.MethodGet, "/market-trends", nil, http.StatusOK},
		{"check inventory", http.MethodPost, "/check-inventory", models.InventoryRequest{ProductID: "p", Quantity: 2}, http.StatusOK},
		{"estimate shipping", http.MethodPost, "/estimate-shipping", models.ShippingEstimateRequest{DestinationZip: "94105"}, http.StatusOK},
		{"supply risks", http.MethodGet, "/supply-risks", nil, http.StatusOK},
		{"chat", http.MethodPost, "/chat", models.ChatRequest{Message: "hello"}, http.StatusOK},
		{"visual search", http.MethodPost, "/visual-search", models.VisualSearchRequest{ImageURL: "http://img.test/x.png"}, http.StatusOK},
		{"analyze emotion", http.MethodPost, "/analyze-emotion", models.EmotionAnalysisRequest{Text: "meh"}, http.StatusOK},
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", nil, http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(services.RequestIDHeader))
		})
	}
}

func TestEmptyBulkPricingReturnsEmptyResults(t *testing.T) {
	monitoring := services.NewMonitoringService(PricingService, time.UTC)
	var maintenance atomic.Bool
	r := NewPricingRouter(testConfig(), monitoring, &maintenance, testServices(t, monitoring).Pricing)

	w := do(r, http.MethodPost, "/bulk-pricing", map[string]interface{}{"products": []interface{}{}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}

func TestServiceRoutersOnlyMountTheirEndpoints(t *testing.T) {
	monitoring := services.NewMonitoringService(SupplyService, time.UTC)
	svc := testServices(t, monitoring)
	var maintenance atomic.Bool

	supply := NewSupplyRouter(testConfig(), monitoring, &maintenance, svc.SupplyChain)
	assert.Equal(t, http.StatusOK, do(supply, http.MethodGet, "/supply-risks", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(supply, http.MethodGet, "/market-trends", nil, nil).Code)

	ai := NewAssistantRouter(testConfig(), services.NewMonitoringService(AIService, time.UTC), &maintenance, svc.Assistant)
	assert.Equal(t, http.StatusOK, do(ai, http.MethodPost, "/analyze-emotion", models.EmotionAnalysisRequest{Text: "love it"}, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(ai, http.MethodPost, "/calculate-price", nil, nil).Code)
}

func TestAdminRoutesRequireAPIKey(t *testing.T) {
	monitoring := services.NewMonitoringService(PricingService, time.UTC)
	var maintenance atomic.Bool
	r := NewPricingRouter(testConfig(), monitoring, &maintenance, testServices(t, monitoring).Pricing)

	creds := handlers.AdminCredentials{Username: "admin", Password: "password"}
	w := do(r, http.MethodPost, "/api/v1/admin/maintenance/start", creds, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, maintenance.Load())

	key := map[string]string{handlers.APIKeyHeader: "test-key"}
	w = do(r, http.MethodPost, "/api/v1/admin/maintenance/start", creds, key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, maintenance.Load())

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", nil, nil).Code)
	// maintenance only affects the health probe
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/market-trends", nil, nil).Code)

	w = do(r, http.MethodGet, "/api/v1/admin/health-status", nil, key)
	assert.JSONEq(t, `{"service":"pricing-engine","isMaintenanceMode":true}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/admin/maintenance/stop", creds, key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil, nil).Code)
}

func TestMonitoringExcludesAdminTraffic(t *testing.T) {
	monitoring := services.NewMonitoringService(PricingService, time.UTC)
	var maintenance atomic.Bool
	r := NewPricingRouter(testConfig(), monitoring, &maintenance, testServices(t, monitoring).Pricing)
	key := map[string]string{handlers.APIKeyHeader: "test-key"}

	do(r, http.MethodGet, "/market-trends", nil, nil)
	do(r, http.MethodPost, "/calculate-price", models.PricingRequest{ProductID: "p", CurrentPrice: -1}, nil)
	do(r, http.MethodGet, "/api/v1/admin/health-status", nil, key)

	w := do(r, http.MethodGet, "/api/v1/monitoring/logs?period=1h", nil, key)
	require.Equal(t, http.StatusOK, w.Code)

	var data services.DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, map[string]int{"/market-trends": 1, "/calculate-price": 1}, data.Endpoints)
	assert.Equal(t, PricingService, data.Service)
}

func TestMetricsEndpoint(t *testing.T) {
	monitoring := services.NewMonitoringService(PricingService, time.UTC)
	var maintenance atomic.Bool
	r := NewPricingRouter(testConfig(), monitoring, &maintenance, testServices(t, monitoring).Pricing)

	do(r, http.MethodPost, "/calculate-price", models.PricingRequest{ProductID: "p", CurrentPrice: 10}, nil)
	do(r, http.MethodPost, "/calculate-price", models.PricingRequest{ProductID: "p", CurrentPrice: 0}, nil)

	w := do(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `loomi_http_requests_total{method="POST",route="/calculate-price",service="pricing-engine",status="200"} 1`)
	assert.Contains(t, body, `loomi_http_requests_total{method="POST",route="/calculate-price",service="pricing-engine",status="400"} 1`)
	assert.Contains(t, body, `loomi_pricing_calculations_total{outcome="ok",service="pricing-engine"} 1`)
	assert.Contains(t, body, `loomi_pricing_calculations_total{outcome="invalid",service="pricing-engine"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORSAllowedOrigins = []string{"https://shop.loomi.test"}
	monitoring := services.NewMonitoringService(PricingService, time.UTC)
	var maintenance atomic.Bool
	r := NewPricingRouter(cfg, monitoring, &maintenance, testServices(t, monitoring).Pricing)

	req := httptest.NewRequest(http.MethodOptions, "/calculate-price", nil)
	req.Header.Set("Origin", "https://shop.loomi.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.loomi.test", w.Header().Get("Access-Control-Allow-Origin"))
}
