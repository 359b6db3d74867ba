package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/models"
	"loomi-api/pkg/pricing"
)

// ErrInvalidInput marks request errors; it is the same sentinel the pricing calculator returns.
var ErrInvalidInput = pricing.ErrInvalidInput

// ShippingStandard is the default shipping method.
const ShippingStandard = "standard"

// Random is the source of the simulated inventory and shipping values.
// Implementations used by the HTTP services must be goroutine-safe.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type systemRandom struct{}

func (systemRandom) Float64() float64 { return rand.Float64() }
func (systemRandom) IntN(n int) int   { return rand.Intn(n) }

// SupplyChainService simulates inventory, shipping and supply risk lookups.
type SupplyChainService struct {
	suppliers []config.Supplier
	risks     []config.SupplyRisk
	random    Random
	now       func() time.Time
}

// NewSupplyChainService creates a SupplyChainService from the catalog fixtures.
func NewSupplyChainService(catalog *config.Catalog) *SupplyChainService {
	return &SupplyChainService{
		suppliers: catalog.Suppliers,
		risks:     catalog.SupplyRisks,
		random:    systemRandom{},
		now:       time.Now,
	}
}

// CheckInventory reports whether req.Quantity units are in stock and which
// suppliers could restock the product.
func (s *SupplyChainService) CheckInventory(_ context.Context, req models.InventoryRequest) (models.InventoryResult, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return models.InventoryResult{}, errors.Wrap(ErrInvalidInput, "product_id is required")
	}
	if req.Quantity <= 0 {
		return models.InventoryResult{}, errors.Wrapf(ErrInvalidInput, "quantity must be positive, got %d", req.Quantity)
	}

	available := s.random.Float64() > 0.3
	stock := 0
	if available {
		stock = s.random.IntN(101)
	}

	result := models.InventoryResult{
		ProductID:    req.ProductID,
		CurrentStock: stock,
		Suppliers:    make([]models.SupplierAvailability, 0, len(s.suppliers)),
	}

	// restocking is less likely to succeed for products that are already out
	chance := 0.8
	if available && stock >= req.Quantity {
		result.Status = models.InventoryInStock
		result.Message = fmt.Sprintf("Available (%d in stock)", stock)
		chance = 1.0
	} else {
		result.Status = models.InventoryOutOfStock
		result.Message = "Currently unavailable"
	}

	now := s.now()
	for _, sup := range s.suppliers {
		if s.random.Float64() < sup.Reliability*chance {
			result.Suppliers = append(result.Suppliers, models.SupplierAvailability{
				ID:                   sup.ID,
				Name:                 sup.Name,
				LeadTime:             sup.LeadTime,
				EstimatedRestockDate: now.AddDate(0, 0, sup.LeadTime).Format(time.DateOnly),
			})
		}
	}

	log.Debug().
		Str("product_id", req.ProductID).
		Str("status", result.Status).
		Int("stock", stock).
		Int("suppliers", len(result.Suppliers)).
		Msg("inventory checked")
	return result, nil
}

// EstimateShipping estimates delivery days from the method, the number of
// products and the distance implied by the destination zip prefix.
func (s *SupplyChainService) EstimateShipping(_ context.Context, req models.ShippingEstimateRequest) (models.ShippingEstimate, error) {
	zip := strings.TrimSpace(req.DestinationZip)
	if len(zip) < 3 {
		return models.ShippingEstimate{}, errors.Wrapf(ErrInvalidInput, "destination_zip %q must start with 3 digits", req.DestinationZip)
	}
	prefix, err := strconv.Atoi(zip[:3])
	if err != nil || strings.ContainsAny(zip[:3], "+-") {
		return models.ShippingEstimate{}, errors.Wrapf(ErrInvalidInput, "destination_zip %q must start with 3 digits", req.DestinationZip)
	}

	method := req.ShippingMethod
	if method == "" {
		method = ShippingStandard
	}
	products := req.ProductIDs
	if products == nil {
		products = []string{}
	}

	baseDays := 1.0
	if method == ShippingStandard {
		baseDays = 3.0
	}
	additionalDays := float64(len(products)) * 0.5
	distance := math.Abs(float64(prefix-100)) / 1000

	total := (baseDays + additionalDays + distance*2) * uniform(s.random, 0.9, 1.1)
	days := int(math.Max(1, math.RoundToEven(total)))

	return models.ShippingEstimate{
		EstimatedDays:  days,
		DeliveryDate:   s.now().AddDate(0, 0, days).Format(time.DateOnly),
		ShippingMethod: method,
		Products:       products,
	}, nil
}

// SupplyRisks lists the known supply risks per product category.
func (s *SupplyChainService) SupplyRisks(_ context.Context) models.SupplyRisksResponse {
	risks := make([]models.SupplyRisk, 0, len(s.risks))
	for _, r := range s.risks {
		risks = append(risks, models.SupplyRisk{
			ProductCategory:      r.ProductCategory,
			RiskLevel:            r.RiskLevel,
			PrimaryRisk:          r.PrimaryRisk,
			AlternativeSuppliers: r.AlternativeSuppliers,
		})
	}
	return models.SupplyRisksResponse{
		Risks:     risks,
		UpdatedAt: s.now().Format(time.RFC3339),
	}
}
