package market

import "github.com/markcheno/go-talib"

// The indicators below delegate to TA-Lib. Results are aligned with the input:
// entries inside the lookback period are zero.

// ExponentialMovingAverage returns the EMA over period values.
func ExponentialMovingAverage[T Value](values []T, period int) []T {
	if period <= 0 || len(values) < period {
		return nil
	}
	return FromFloat64s[T](talib.Ema(Float64s(values), period))
}

// RelativeStrengthIndex returns the RSI on the 0..100 scale.
func RelativeStrengthIndex[T Value](values []T, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return nil
	}
	return talib.Rsi(Float64s(values), period)
}

// MACD holds the three MACD output lines.
type MACD[T Value] struct {
	Line      []T
	Signal    []T
	Histogram []T
}

// MovingAverageConvergenceDivergence computes MACD with the given periods.
func MovingAverageConvergenceDivergence[T Value](values []T, fast, slow, signal int) (MACD[T], bool) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal {
		return MACD[T]{}, false
	}
	line, sig, hist := talib.Macd(Float64s(values), fast, slow, signal)
	return MACD[T]{
		Line:      FromFloat64s[T](line),
		Signal:    FromFloat64s[T](sig),
		Histogram: FromFloat64s[T](hist),
	}, true
}
