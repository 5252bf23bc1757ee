package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricePercentArithmetic(t *testing.T) {
	p := Price(100)
	x := Percent(0.05)

	assert.InDelta(t, 105.0, p.AddPercent(x).Float64(), 1e-9)
	assert.InDelta(t, 95.0, p.SubPercent(x).Float64(), 1e-9)
	assert.InDelta(t, 5.0, p.MulPercent(x).Float64(), 1e-9)
	assert.InDelta(t, 2000.0, p.DivPercent(x).Float64(), 1e-9)
}

func TestPercentIsMultiplicative(t *testing.T) {
	testCases := []struct {
		desc  string
		price Price
		pct   Percent
	}{
		{"small gain", 100, 0.05},
		{"loss", 37.5, -0.2},
		{"large", 12345.678, 1.5},
		{"zero", 80, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			want := float64(tc.price) * (1 + float64(tc.pct))
			assert.Equal(t, want, tc.price.AddPercent(tc.pct).Float64())

			roundTrip := tc.price.AddPercent(tc.pct).SubPercent(tc.pct)
			if tc.pct != 0 {
				assert.NotEqual(t, tc.price, roundTrip, "percent arithmetic is not additive")
			}
		})
	}
}

func TestPointsPercentArithmetic(t *testing.T) {
	p := Points(200)
	assert.InDelta(t, 220.0, p.AddPercent(0.1).Float64(), 1e-9)
	assert.InDelta(t, 180.0, p.SubPercent(0.1).Float64(), 1e-9)
	assert.InDelta(t, 20.0, p.MulPercent(0.1).Float64(), 1e-9)
	assert.InDelta(t, 2000.0, p.DivPercent(0.1).Float64(), 1e-9)
}

func TestConversions(t *testing.T) {
	assert.InDelta(t, 0.05, PercentFromDecimal(5).Float64(), 1e-12)
	assert.InDelta(t, 5.0, Percent(0.05).Decimal(), 1e-12)
	assert.Equal(t, "5%", Percent(0.05).String())

	assert.Equal(t, Price(250), PriceFromPoints(2.5, 100))
	assert.Equal(t, Price(110), PriceFromRelativePoints(100, 2, 5))
	assert.Equal(t, Price(90), PriceFromRelativePrice(100, -10))
	assert.Equal(t, Points(40), PointsFromPrice(2.5, 100))
	assert.Equal(t, Points(14), PointsFromRelativePrice(10, 2.5, 10))
	assert.Equal(t, Points(7), PointsFromRelativePoints(10, -3))

	assert.InDelta(t, 0.1, GrowthBetween(Price(100), Price(110)).Float64(), 1e-12)
	assert.Equal(t, "42.5", Price(42.5).String())
}
