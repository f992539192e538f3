package analysis

import (
	"meme-market/src/analysis/core"
	"meme-market/src/models"
)

// SummarizeHistory computes the price statistics of a stock's history.
// Entries must be in trade order; an empty history yields zero stats.
func SummarizeHistory(name string, history []models.MHistoryEntry) models.MHistoryStats {
	stats := models.MHistoryStats{Name: name, Trades: len(history)}
	if len(history) == 0 {
		return stats
	}

	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.Price
	}

	ohlc := core.ComputeOHLC(prices)
	mean, std := core.MeanStd(prices)

	stats.Open = ohlc.Open
	stats.High = ohlc.High
	stats.Low = ohlc.Low
	stats.Close = ohlc.Close
	stats.Mean = mean
	stats.Std = std
	stats.ZScore = core.ZScore(ohlc.Close, mean, std)
	stats.ChangePercent = core.ChangePercent(ohlc.Close, ohlc.Open)
	stats.FirstTrade = history[0].Time
	stats.LastTrade = history[len(history)-1].Time
	return stats
}
