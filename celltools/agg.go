package celltools

// Aggregations over tile values. All of them expect at least one value.

func Mean(inData ...float64) float64 {
	return Sum(inData...) / float64(len(inData))
}

func Sum(inData ...float64) float64 {
	var sum float64
	for _, val := range inData {
		sum += val
	}
	return sum
}

func Max(inData ...float64) float64 {
	return extreme(inData, func(a, b float64) bool { return a > b })
}

func Min(inData ...float64) float64 {
	return extreme(inData, func(a, b float64) bool { return a < b })
}

func extreme(inData []float64, better func(a, b float64) bool) float64 {
	best := inData[0]
	for _, val := range inData[1:] {
		if better(val, best) {
			best = val
		}
	}
	return best
}
