// Package pricing computes dynamic product prices.
//
// A price is the current price scaled by a demand factor and a time-of-day
// factor, rounded to cents and never lower than 70% of the current price.
package pricing

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"loomi-api/pkg/models"
)

// ErrInvalidInput is returned for requests that cannot be priced.
var ErrInvalidInput = errors.New("invalid input")

// Demand factor bounds.
const (
	MinDemandFactor = 0.8
	MaxDemandFactor = 1.2
)

var (
	floorRatio = decimal.RequireFromString("0.7")
	hundred    = decimal.NewFromInt(100)
)

// Factors are the multipliers applied to a price.
type Factors struct {
	Demand float64
	Time   float64
}

// FactorProvider supplies the factors used to price a request.
type FactorProvider interface {
	Factors(ctx context.Context, req models.PricingRequest) (Factors, error)
}

// Calculator prices requests with factors from a FactorProvider.
type Calculator struct {
	provider FactorProvider
}

// NewCalculator returns a Calculator backed by provider.
func NewCalculator(provider FactorProvider) *Calculator {
	return &Calculator{provider: provider}
}

// Price validates req, asks the provider for factors and computes the result.
func (c *Calculator) Price(ctx context.Context, req models.PricingRequest) (models.PricingResult, error) {
	if err := Validate(req); err != nil {
		return models.PricingResult{}, err
	}
	factors, err := c.provider.Factors(ctx, req)
	if err != nil {
		return models.PricingResult{}, errors.Wrapf(err, "resolve pricing factors for %s", req.ProductID)
	}
	return Calculate(req, factors)
}

// Validate checks the product id and price of req.
func Validate(req models.PricingRequest) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return errors.Wrap(ErrInvalidInput, "product_id is required")
	}
	if !isFinite(req.CurrentPrice) || req.CurrentPrice <= 0 {
		return errors.Wrapf(ErrInvalidInput, "current_price must be a positive number, got %v", req.CurrentPrice)
	}
	return nil
}

// Calculate is the pure pricing rule. The demand factor is clamped to
// [MinDemandFactor, MaxDemandFactor]; the time factor must be positive.
// A price raised to the 70% floor is rounded up to the next cent.
func Calculate(req models.PricingRequest, f Factors) (models.PricingResult, error) {
	if err := Validate(req); err != nil {
		return models.PricingResult{}, err
	}
	if math.IsNaN(f.Demand) {
		return models.PricingResult{}, errors.Wrap(ErrInvalidInput, "demand factor is NaN")
	}
	if !isFinite(f.Time) || f.Time <= 0 {
		return models.PricingResult{}, errors.Wrapf(ErrInvalidInput, "time factor must be positive, got %v", f.Time)
	}
	demand := ClampDemand(f.Demand)

	price := decimal.NewFromFloat(req.CurrentPrice)
	final := price.
		Mul(decimal.NewFromFloat(demand)).
		Mul(decimal.NewFromFloat(f.Time)).
		Round(2)

	// rounded up so the cent value stays on or above the exact floor
	minPrice := price.Mul(floorRatio).RoundCeil(2)
	if final.LessThan(minPrice) {
		final = minPrice
	}

	discount := decimal.Zero
	if final.LessThan(price) {
		discount = price.Sub(final).Div(price).Mul(hundred).Round(1)
	}

	return models.PricingResult{
		ProductID:       req.ProductID,
		OriginalPrice:   req.CurrentPrice,
		DynamicPrice:    final.InexactFloat64(),
		DiscountPercent: discount.InexactFloat64(),
		Discount:        discount.InexactFloat64(),
		Factors: models.PricingFactors{
			Demand: round2(demand),
			Time:   round2(f.Time),
		},
	}, nil
}

// ClampDemand bounds a demand factor to [MinDemandFactor, MaxDemandFactor].
func ClampDemand(v float64) float64 {
	return math.Min(MaxDemandFactor, math.Max(MinDemandFactor, v))
}

// TimeFactor maps an hour of the day to its price multiplier:
// late night (1-5) 0.9, lunchtime (12-14) 1.1, otherwise 1.0.
func TimeFactor(hour int) float64 {
	switch {
	case hour >= 1 && hour <= 5:
		return 0.9
	case hour >= 12 && hour <= 14:
		return 1.1
	default:
		return 1.0
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
