package core

import "math"

// -----------------------------------------------------------------------------

// MeanStd returns the mean and population standard deviation of prices in a
// single pass (Welford).
func MeanStd(prices []float64) (mean, std float64) {
	var m2 float64
	for i, p := range prices {
		delta := p - mean
		mean += delta / float64(i+1)
		m2 += delta * (p - mean)
	}
	if len(prices) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(prices)))
}

// ZScore is the distance of price from mean in standard deviations; zero for a flat series.
func ZScore(price, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (price - mean) / std
}
