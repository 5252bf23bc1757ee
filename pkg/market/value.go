package market

import "strconv"

// Value is the set of unit-typed market values the analytics operate on.
type Value interface {
	~float64
}

// Price is a currency-less price. Mixing currencies is the caller's concern.
type Price float64

// RelativePrice is a price delta against some base price.
type RelativePrice = Price

// Percent is a ratio, 0.05 means five percent.
type Percent float64

// Points is a point-denominated quantity, e.g. index points.
type Points float64

// RelativePoints is a points delta against some base.
type RelativePoints = Points

const (
	OnePercent          Percent = 0.01
	MinusOnePercent     Percent = -0.01
	HundredPercent      Percent = 1
	MinusHundredPercent Percent = -1
)

// NewPrice converts a raw float.
func NewPrice(v float64) Price { return Price(v) }

// NewPoints converts a raw float.
func NewPoints(v float64) Points { return Points(v) }

// NewPercent converts a raw ratio, NewPercent(0.05) is five percent.
func NewPercent(ratio float64) Percent { return Percent(ratio) }

// PercentFromDecimal converts a human notation, PercentFromDecimal(5) is five percent.
func PercentFromDecimal(decimal float64) Percent {
	return Percent(decimal / 100)
}

// GrowthBetween returns the relative change from one value to another.
func GrowthBetween[T Value](from, to T) Percent {
	return Percent(float64(to)/float64(from) - 1)
}

func (p Price) Float64() float64 { return float64(p) }

// AddPercent increases the price by x of itself: p * (1 + x).
func (p Price) AddPercent(x Percent) Price { return p * Price(1+x) }

// SubPercent decreases the price by x of itself: p * (1 - x).
func (p Price) SubPercent(x Percent) Price { return p * Price(1-x) }

// MulPercent returns x of the price.
func (p Price) MulPercent(x Percent) Price { return p * Price(x) }

// DivPercent scales the price by 1/x.
func (p Price) DivPercent(x Percent) Price { return p / Price(x) }

func (p Price) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// PriceFromRelativePrice applies a delta to a base price.
func PriceFromRelativePrice(base Price, relative RelativePrice) Price {
	return base + relative
}

// PriceFromPoints converts points into a price given the price of one point.
func PriceFromPoints(pricePerPoint Price, points Points) Price {
	return pricePerPoint * Price(points)
}

// PriceFromRelativePoints applies a points delta to a base price.
func PriceFromRelativePoints(base, pricePerPoint Price, relative RelativePoints) Price {
	return base + pricePerPoint*Price(relative)
}

func (p Points) Float64() float64 { return float64(p) }

// AddPercent increases the points by x of itself.
func (p Points) AddPercent(x Percent) Points { return p * Points(1+x) }

// SubPercent decreases the points by x of itself.
func (p Points) SubPercent(x Percent) Points { return p * Points(1-x) }

// MulPercent returns x of the points.
func (p Points) MulPercent(x Percent) Points { return p * Points(x) }

// DivPercent scales the points by 1/x.
func (p Points) DivPercent(x Percent) Points { return p / Points(x) }

func (p Points) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// PointsFromRelativePoints applies a delta to base points.
func PointsFromRelativePoints(base Points, relative RelativePoints) Points {
	return base + relative
}

// PointsFromPrice converts a price into points given the price of one point.
func PointsFromPrice(pricePerPoint Price, price Price) Points {
	return Points(price / pricePerPoint)
}

// PointsFromRelativePrice applies a price delta, expressed in points, to base points.
func PointsFromRelativePrice(base Points, pricePerPoint Price, relative RelativePrice) Points {
	return base + Points(relative/pricePerPoint)
}

func (p Percent) Float64() float64 { return float64(p) }

// Decimal returns the human notation, 0.05 becomes 5.
func (p Percent) Decimal() float64 { return float64(p) * 100 }

func (p Percent) String() string {
	return strconv.FormatFloat(p.Decimal(), 'f', -1, 64) + "%"
}
