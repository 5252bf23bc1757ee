package market

// FirstCrossOver returns the smallest index i > 0 at which the sign of
// series1[i-1]-series2[i-1] differs from the sign of series1[i]-series2[i].
// Series of different length are compared over their common prefix.
func FirstCrossOver[T Value](series1, series2 []T) (int, bool) {
	n := commonLen(series1, series2)
	for i := 1; i < n; i++ {
		if crossed(series1, series2, i) {
			return i, true
		}
	}
	return 0, false
}

// LastCrossOver returns the largest such index.
func LastCrossOver[T Value](series1, series2 []T) (int, bool) {
	n := commonLen(series1, series2)
	for i := n - 1; i > 0; i-- {
		if crossed(series1, series2, i) {
			return i, true
		}
	}
	return 0, false
}

// AllCrossOvers returns every crossover index in increasing order.
func AllCrossOvers[T Value](series1, series2 []T) []int {
	n := commonLen(series1, series2)
	var indices []int
	for i := 1; i < n; i++ {
		if crossed(series1, series2, i) {
			indices = append(indices, i)
		}
	}
	return indices
}

func crossed[T Value](series1, series2 []T, i int) bool {
	return sign(series1[i-1]-series2[i-1]) != sign(series1[i]-series2[i])
}

func sign[T Value](v T) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func commonLen[T Value](series1, series2 []T) int {
	return min(len(series1), len(series2))
}
