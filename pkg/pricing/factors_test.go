package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loomi-api/pkg/models"
)

type constRandom float64

func (c constRandom) Float64() float64 { return float64(c) }

func TestSimulatedFactors(t *testing.T) {
	lunch := func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }

	testCases := []struct {
		draw   float64
		demand float64
	}{
		{0, 0.8},
		{0.5, 1.0},
		{0.999999, 1.2},
	}

	for _, tc := range testCases {
		provider := NewSimulatedFactors(constRandom(tc.draw), lunch, time.UTC)
		f, err := provider.Factors(context.Background(), models.PricingRequest{})
		require.NoError(t, err)
		assert.InDelta(t, tc.demand, f.Demand, 1e-5)
		assert.Equal(t, 1.1, f.Time)
	}
}

func TestSimulatedFactorsUsesLocation(t *testing.T) {
	// 18:00 UTC is 03:00 the next day in UTC+9
	evening := func() time.Time { return time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC) }

	utc := NewSimulatedFactors(constRandom(0.5), evening, time.UTC)
	f, err := utc.Factors(context.Background(), models.PricingRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Time)

	tokyo := NewSimulatedFactors(constRandom(0.5), evening, time.FixedZone("UTC+9", 9*3600))
	f, err = tokyo.Factors(context.Background(), models.PricingRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0.9, f.Time)
}

func TestSimulatedFactorsDefaults(t *testing.T) {
	provider := NewSimulatedFactors(nil, nil, nil)

	for i := 0; i < 100; i++ {
		f, err := provider.Factors(context.Background(), models.PricingRequest{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f.Demand, MinDemandFactor)
		assert.Less(t, f.Demand, MaxDemandFactor)
		assert.Contains(t, []float64{0.9, 1.0, 1.1}, f.Time)
	}
}

func TestFixedFactors(t *testing.T) {
	f, err := FixedFactors{Demand: 0.85, Time: 0.9}.Factors(context.Background(), models.PricingRequest{})
	require.NoError(t, err)
	assert.Equal(t, Factors{Demand: 0.85, Time: 0.9}, f)
}
