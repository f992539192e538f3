package core

import "math"

// -----------------------------------------------------------------------------

// OHLC is the open, high, low and close of a price series.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// ComputeOHLC summarizes prices in series order. An empty series is all zeros.
func ComputeOHLC(prices []float64) OHLC {
	if len(prices) == 0 {
		return OHLC{}
	}

	out := OHLC{Open: prices[0], High: prices[0], Low: prices[0], Close: prices[len(prices)-1]}
	for _, p := range prices[1:] {
		if p > out.High {
			out.High = p
		}
		if p < out.Low {
			out.Low = p
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// ChangePercent is the percentage change relative to |previous|.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / math.Abs(previous) * 100
}
