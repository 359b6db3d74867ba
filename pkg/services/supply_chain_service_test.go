package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "loomi-api/configs"
	"loomi-api/pkg/models"
)

var supplyNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestSupplyChainService(t *testing.T, random Random) *SupplyChainService {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	svc := NewSupplyChainService(catalog)
	svc.random = random
	svc.now = func() time.Time { return supplyNow }
	return svc
}

func TestCheckInventoryInStock(t *testing.T) {
	random := &seqRandom{draws: []float64{0.5, 0.5, 0.9, 0.1}, ints: []int{40}}
	svc := newTestSupplyChainService(t, random)

	result, err := svc.CheckInventory(context.Background(), models.InventoryRequest{ProductID: "p-1", Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, models.InventoryInStock, result.Status)
	assert.Equal(t, "Available (40 in stock)", result.Message)
	assert.Equal(t, 40, result.CurrentStock)
	assert.Equal(t, []models.SupplierAvailability{
		{ID: "sup1", Name: "Global Suppliers Inc.", LeadTime: 7, EstimatedRestockDate: "2024-05-08"},
		{ID: "sup3", Name: "Budget Parts Ltd.", LeadTime: 14, EstimatedRestockDate: "2024-05-15"},
	}, result.Suppliers)
}

func TestCheckInventoryUnavailable(t *testing.T) {
	// 0.7 passes sup1 (0.76) and sup3 (0.784) but not sup2 (0.68)
	random := &seqRandom{draws: []float64{0.2, 0.7, 0.7, 0.7}, ints: []int{99}}
	svc := newTestSupplyChainService(t, random)

	result, err := svc.CheckInventory(context.Background(), models.InventoryRequest{ProductID: "p-1", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, models.InventoryOutOfStock, result.Status)
	assert.Equal(t, "Currently unavailable", result.Message)
	assert.Equal(t, 0, result.CurrentStock)
	require.Len(t, result.Suppliers, 2)
	assert.Equal(t, "sup1", result.Suppliers[0].ID)
	assert.Equal(t, "sup3", result.Suppliers[1].ID)
	assert.Equal(t, 0, random.j, "stock is not sampled when unavailable")
}

func TestCheckInventoryInsufficientStock(t *testing.T) {
	random := &seqRandom{draws: []float64{0.9, 0.99}, ints: []int{5}}
	svc := newTestSupplyChainService(t, random)

	result, err := svc.CheckInventory(context.Background(), models.InventoryRequest{ProductID: "p-1", Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, models.InventoryOutOfStock, result.Status)
	assert.Equal(t, 5, result.CurrentStock)
	assert.Empty(t, result.Suppliers)
	assert.NotNil(t, result.Suppliers)
}

func TestCheckInventoryValidation(t *testing.T) {
	svc := newTestSupplyChainService(t, fixedRandom(0.5))

	_, err := svc.CheckInventory(context.Background(), models.InventoryRequest{ProductID: " ", Quantity: 1})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.CheckInventory(context.Background(), models.InventoryRequest{ProductID: "p-1", Quantity: 0})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestEstimateShipping(t *testing.T) {
	testCases := []struct {
		name         string
		req          models.ShippingEstimateRequest
		random       float64
		expectedDays int
		method       string
	}{
		{"standard two products", models.ShippingEstimateRequest{ProductIDs: []string{"a", "b"}, DestinationZip: "10001"}, 0.5, 4, "standard"},
		{"express far zip", models.ShippingEstimateRequest{DestinationZip: "90210", ShippingMethod: "express"}, 0.5, 3, "express"},
		{"half day rounds to even", models.ShippingEstimateRequest{ProductIDs: []string{"a", "b", "c"}, DestinationZip: "100", ShippingMethod: "express"}, 0.5, 2, "express"},
		{"never below one day", models.ShippingEstimateRequest{DestinationZip: "10001", ShippingMethod: "overnight"}, 0, 1, "overnight"},
		{"slow draw", models.ShippingEstimateRequest{ProductIDs: []string{"a"}, DestinationZip: "10001"}, 1, 4, "standard"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestSupplyChainService(t, fixedRandom(tc.random))

			estimate, err := svc.EstimateShipping(context.Background(), tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedDays, estimate.EstimatedDays)
			assert.Equal(t, tc.method, estimate.ShippingMethod)
			assert.Equal(t, supplyNow.AddDate(0, 0, tc.expectedDays).Format(time.DateOnly), estimate.DeliveryDate)
			assert.NotNil(t, estimate.Products)
		})
	}
}

func TestEstimateShippingInvalidZip(t *testing.T) {
	svc := newTestSupplyChainService(t, fixedRandom(0.5))

	for _, zip := range []string{"", "12", "ab123", "-12345", "+1234"} {
		_, err := svc.EstimateShipping(context.Background(), models.ShippingEstimateRequest{DestinationZip: zip})
		assert.True(t, errors.Is(err, ErrInvalidInput), "zip %q", zip)
	}
}

func TestSupplyRisks(t *testing.T) {
	svc := newTestSupplyChainService(t, fixedRandom(0.5))

	resp := svc.SupplyRisks(context.Background())
	assert.Equal(t, []models.SupplyRisk{
		{ProductCategory: "electronics", RiskLevel: "medium", PrimaryRisk: "semiconductor shortages", AlternativeSuppliers: 2},
		{ProductCategory: "textiles", RiskLevel: "low", PrimaryRisk: "shipping delays", AlternativeSuppliers: 5},
	}, resp.Risks)
	assert.Equal(t, "2024-05-01T10:00:00Z", resp.UpdatedAt)
}
