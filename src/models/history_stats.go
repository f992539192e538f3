package models

import "time"

// MHistoryStats summarizes the price history of one stock.
type MHistoryStats struct {
	Name          string    `json:"name"`
	Trades        int       `json:"trades"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Mean          float64   `json:"mean"`
	Std           float64   `json:"std"`
	ZScore        float64   `json:"z_score"`        // close relative to the mean
	ChangePercent float64   `json:"change_percent"` // close vs open
	FirstTrade    time.Time `json:"first_trade"`
	LastTrade     time.Time `json:"last_trade"`
}
