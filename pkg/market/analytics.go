package market

// FromFloat64s converts raw floats into unit-typed values.
func FromFloat64s[T Value](floats []float64) []T {
	values := make([]T, len(floats))
	for i, f := range floats {
		values[i] = T(f)
	}
	return values
}

// Float64s converts unit-typed values back into raw floats.
func Float64s[T Value](values []T) []float64 {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}
	return floats
}

// SimpleAverage returns the arithmetic mean, zero for an empty slice.
func SimpleAverage[T Value](values []T) T {
	if len(values) == 0 {
		return 0
	}
	var sum T
	for _, v := range values {
		sum += v
	}
	return sum / T(len(values))
}

// SimpleMovingAverage returns one average per full window of interval values,
// len(values)-interval+1 results in total.
func SimpleMovingAverage[T Value](values []T, interval int) []T {
	if interval <= 0 || len(values) < interval {
		return nil
	}
	averages := make([]T, 0, len(values)-interval+1)
	for i := interval; i <= len(values); i++ {
		averages = append(averages, SimpleAverage(values[i-interval:i]))
	}
	return averages
}

// Momentum returns first minus last as a unit-less float.
func Momentum[T Value](values []T) float64 {
	if len(values) <= 1 {
		return 0
	}
	return float64(values[0]) - float64(values[len(values)-1])
}

// AverageMomentum averages the momentum of each consecutive pair.
func AverageMomentum[T Value](values []T) float64 {
	if len(values) <= 1 {
		return 0
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		sum += float64(values[i-1]) - float64(values[i])
	}
	return sum / float64(len(values)-1)
}

// MovingMomentum returns the momentum of each full window of interval values.
func MovingMomentum[T Value](values []T, interval int) []float64 {
	if interval <= 0 || len(values) < interval {
		return nil
	}
	momentums := make([]float64, 0, len(values)-interval+1)
	for i := interval; i <= len(values); i++ {
		momentums = append(momentums, Momentum(values[i-interval:i]))
	}
	return momentums
}

// Growth returns the relative change from the first to the last value.
func Growth[T Value](values []T) Percent {
	if len(values) <= 1 {
		return 0
	}
	return GrowthBetween(values[0], values[len(values)-1])
}

// AverageGrowth averages the growth of each consecutive pair.
func AverageGrowth[T Value](values []T) Percent {
	if len(values) <= 1 {
		return 0
	}
	growths := make([]Percent, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		growths = append(growths, GrowthBetween(values[i-1], values[i]))
	}
	return SimpleAverage(growths)
}

// MovingGrowth returns the growth between values interval steps apart.
func MovingGrowth[T Value](values []T, interval int) []Percent {
	if interval <= 0 || len(values) <= interval {
		return nil
	}
	growths := make([]Percent, 0, len(values)-interval)
	for i := interval; i < len(values); i++ {
		growths = append(growths, GrowthBetween(values[i-interval], values[i]))
	}
	return growths
}

// Min returns the smallest value and false for an empty slice.
func Min[T Value](values []T) (T, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// Max returns the largest value and false for an empty slice.
func Max[T Value](values []T) (T, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}
