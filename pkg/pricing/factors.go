package pricing

import (
	"context"
	"math/rand"
	"time"

	"loomi-api/pkg/models"
)

// RandomSource yields uniformly distributed numbers in [0, 1).
type RandomSource interface {
	Float64() float64
}

type systemRandom struct{}

// Float64 uses the goroutine-safe top-level generator.
func (systemRandom) Float64() float64 { return rand.Float64() }

// SimulatedFactors samples a demand factor and derives the time factor from the clock.
type SimulatedFactors struct {
	random   RandomSource
	now      func() time.Time
	location *time.Location
}

// NewSimulatedFactors builds a provider. Nil arguments fall back to the
// process-wide random generator, time.Now and the local time zone.
func NewSimulatedFactors(random RandomSource, now func() time.Time, location *time.Location) *SimulatedFactors {
	if random == nil {
		random = systemRandom{}
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &SimulatedFactors{random: random, now: now, location: location}
}

// Factors implements FactorProvider.
func (s *SimulatedFactors) Factors(_ context.Context, _ models.PricingRequest) (Factors, error) {
	demand := MinDemandFactor + (MaxDemandFactor-MinDemandFactor)*s.random.Float64()
	hour := s.now().In(s.location).Hour()
	return Factors{Demand: demand, Time: TimeFactor(hour)}, nil
}

// FixedFactors always returns the same factors.
type FixedFactors Factors

// Factors implements FactorProvider.
func (f FixedFactors) Factors(_ context.Context, _ models.PricingRequest) (Factors, error) {
	return Factors(f), nil
}
